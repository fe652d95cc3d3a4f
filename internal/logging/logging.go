// Package logging builds the application logger. The terminal belongs to
// the TUI, so log output goes to a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhle/tasksync/internal/model"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a text logger writing to cfg.Path at cfg.Level. An empty
// path discards all output. The returned Closer releases the log file.
func New(cfg model.LogConfig) (*slog.Logger, io.Closer, error) {
	name := strings.TrimSpace(cfg.Level)
	if name == "" {
		name = "info"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	if cfg.Path == "" {
		return slog.New(slog.DiscardHandler), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return NewWithWriter(f, level), f, nil
}

// NewWithWriter returns a text logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
