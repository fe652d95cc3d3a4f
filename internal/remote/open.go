package remote

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/tasksync/internal/model"
)

// Open constructs the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg model.RemoteConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case model.BackendMemory:
		return NewMemoryStore(logger), nil

	case model.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		return NewSQLiteStore(cfg.SQLitePath, logger)

	case model.BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr:   cfg.RedisAddr,
			Prefix: cfg.RedisPrefix,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}
