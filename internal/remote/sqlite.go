package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists rows in a local SQLite database. Change fan-out
// reaches subscribers within the same process.
type SQLiteStore struct {
	*nodeStore
	rows *sqliteRows
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
// logger may be nil.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	rows := &sqliteRows{db: db}
	if err := rows.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	ns := newNodeStore(rows, logger)
	rows.notify = ns.hub.notify
	return &SQLiteStore{nodeStore: ns, rows: rows}, nil
}

// Close detaches all subscribers and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.hub.close()
	return s.rows.db.Close()
}

type sqliteRows struct {
	db     *sqlx.DB
	notify func(ctx context.Context, changed []string)
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (r *sqliteRows) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := r.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = r.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := r.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// nodeRow is a single leaf as stored in the nodes table.
type nodeRow struct {
	Path  string `db:"path"`
	Value string `db:"value"`
}

func (r *sqliteRows) read(ctx context.Context, base string) (map[string]string, error) {
	var found []nodeRow

	var err error
	if base == "" {
		err = r.db.SelectContext(ctx, &found, "SELECT path, value FROM nodes")
	} else {
		lo, hi := subtreeBounds(base)
		err = r.db.SelectContext(ctx, &found,
			"SELECT path, value FROM nodes WHERE path = ? OR (path > ? AND path < ?)",
			base, lo, hi)
	}
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}

	out := make(map[string]string, len(found))
	for _, row := range found {
		out[row.Path] = row.Value
	}
	return out, nil
}

func (r *sqliteRows) apply(ctx context.Context, muts []mutation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, m := range muts {
		if m.path == "" {
			_, err = tx.ExecContext(ctx, "DELETE FROM nodes")
		} else {
			lo, hi := subtreeBounds(m.path)
			_, err = tx.ExecContext(ctx,
				"DELETE FROM nodes WHERE path = ? OR (path > ? AND path < ?)",
				m.path, lo, hi)
		}
		if err != nil {
			return fmt.Errorf("clearing %s: %w", m.path, err)
		}

		if len(m.rows) == 0 {
			continue
		}

		if anc := ancestors(m.path); len(anc) > 0 {
			query, args, err := sqlx.In("DELETE FROM nodes WHERE path IN (?)", anc)
			if err != nil {
				return fmt.Errorf("building ancestor delete for %s: %w", m.path, err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("clearing ancestors of %s: %w", m.path, err)
			}
		}

		stmt, err := tx.PreparexContext(ctx,
			"INSERT INTO nodes (path, value, updated_at) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("preparing insert statement: %w", err)
		}
		for p, v := range m.rows {
			if _, err := stmt.ExecContext(ctx, p, v, now); err != nil {
				stmt.Close()
				return fmt.Errorf("inserting node %s: %w", p, err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	// The write is committed; subscribers must hear about it even if the
	// writer's context has ended.
	r.notify(context.WithoutCancel(ctx), changedPaths(muts))
	return nil
}
