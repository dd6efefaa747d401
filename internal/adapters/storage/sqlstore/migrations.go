package sqlstore

import (
	"context"
	"fmt"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
)

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func(ctx context.Context) error
}

// runMigrations executes pending schema migrations in order.
func (s *Store) runMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
	}
	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		if err := m.up(ctx); err != nil {
			return fmt.Errorf("%w: migration %d (%s): %v", storage.ErrUnavailable, m.version, m.name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
	}
	return nil
}

func (s *Store) migration001InitialSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cupping_sessions (
			session_id TEXT PRIMARY KEY,
			share_id TEXT UNIQUE NOT NULL,
			taster_name TEXT NOT NULL DEFAULT '',
			anonymous_mode INTEGER NOT NULL DEFAULT 0,
			attributes TEXT NOT NULL DEFAULT '{}',
			origin TEXT NOT NULL DEFAULT '',
			producer TEXT NOT NULL DEFAULT '',
			roast_level TEXT NOT NULL DEFAULT '',
			preparation_method TEXT NOT NULL DEFAULT '',
			flavor_notes TEXT NOT NULL DEFAULT '[]',
			cost REAL NOT NULL DEFAULT 0,
			excluded INTEGER NOT NULL DEFAULT 0,
			finalized INTEGER NOT NULL DEFAULT 0,
			schema_version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analytics_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			share_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}'
		)`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_share_id ON analytics_events (share_id)`)
	return err
}
