package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/nhle/tasksync/internal/auth"
	"github.com/nhle/tasksync/internal/credential"
	"github.com/nhle/tasksync/internal/logging"
	"github.com/nhle/tasksync/internal/model"
	"github.com/nhle/tasksync/internal/remote"
	appsync "github.com/nhle/tasksync/internal/sync"
)

// openCredentials opens the secret storage backing the session.
var openCredentials = func(dir string) (auth.Secrets, error) {
	return credential.Open(dir)
}

// env bundles what every command needs: config, logger, session and,
// once opened, the remote store.
type env struct {
	cfgPath string
	cfg     *model.AppConfig
	logger  *slog.Logger
	session *auth.Session
	store   remote.Store

	closers []io.Closer
}

// openEnv loads the config, sets up logging and restores the session. The
// remote store is opened separately by openStore since login and logout
// never touch it.
func openEnv(configPath string) (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	e := &env{cfgPath: configPath, cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	secrets, err := openCredentials(filepath.Join(model.ConfigDir(), "credentials"))
	if err != nil {
		e.Close()
		return nil, err
	}
	e.session = auth.NewSession(secrets)
	if _, _, err := e.session.Restore(); err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

func (e *env) openStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Remote.CommandTimeout())
	defer cancel()

	store, err := remote.Open(ctx, e.cfg.Remote, e.logger)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", e.cfg.Remote.Backend, err)
	}
	e.store = store
	// Closed before the log file.
	e.closers = append([]io.Closer{store}, e.closers...)
	return nil
}

// engine returns a sync engine over the opened store.
func (e *env) engine(opts ...appsync.Option) *appsync.Engine {
	opts = append([]appsync.Option{appsync.WithLogger(e.logger)}, opts...)
	return appsync.New(e.store, opts...)
}

// requireUser returns the signed-in user or an error telling how to sign in.
func (e *env) requireUser() (string, error) {
	userID, ok := e.session.CurrentUser()
	if !ok {
		return "", errors.New("not signed in: run tasksync login")
	}
	return userID, nil
}

// useBackend makes backend the configured remote store and saves the
// config file when that changes it.
func (e *env) useBackend(backend string) error {
	if backend == "" || backend == e.cfg.Remote.Backend {
		return nil
	}
	switch backend {
	case model.BackendMemory, model.BackendSQLite, model.BackendRedis:
	default:
		return fmt.Errorf("unknown remote backend %q", backend)
	}

	e.cfg.Remote.Backend = backend
	if err := model.SaveConfig(e.cfgPath, e.cfg); err != nil {
		return err
	}
	e.logger.Info("remote backend changed", "backend", backend, "config", e.cfgPath)
	return nil
}

func (e *env) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
