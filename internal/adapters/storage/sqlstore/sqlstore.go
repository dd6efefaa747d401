// Package sqlstore implements the storage backend on a SQLite table using
// modernc.org/sqlite (pure Go, CGo-free). Per-record atomicity relies on
// SQLite's native transaction isolation; transient I/O errors are retried
// once before being surfaced.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/pkg/metrics"
)

// timeLayout keeps full nanosecond precision at a fixed width so that SQL
// string comparison orders chronologically. RFC3339Nano would not: it trims
// trailing zeros, and a bare 'Z' sorts after a fractional '.'.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed storage.Backend implementation.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and runs pending migrations.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// retryOnce runs op and retries a single time on failure before giving up.
func retryOnce(op func() error) error {
	if err := op(); err != nil {
		return op()
	}
	return nil
}

// Put writes or replaces a full session record.
func (s *Store) Put(ctx context.Context, rec model.CuppingSession) error {
	done := metrics.TimeStorageOp("put")
	defer done()

	rec.SchemaVersion = model.SchemaVersionCurrent
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	notes, err := json.Marshal(rec.FlavorNotes)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	err = retryOnce(func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO cupping_sessions
				(session_id, share_id, taster_name, anonymous_mode, attributes,
				 origin, producer, roast_level, preparation_method, flavor_notes,
				 cost, excluded, finalized, schema_version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				share_id=excluded.share_id,
				taster_name=excluded.taster_name,
				anonymous_mode=excluded.anonymous_mode,
				attributes=excluded.attributes,
				origin=excluded.origin,
				producer=excluded.producer,
				roast_level=excluded.roast_level,
				preparation_method=excluded.preparation_method,
				flavor_notes=excluded.flavor_notes,
				cost=excluded.cost,
				excluded=excluded.excluded,
				finalized=excluded.finalized,
				schema_version=excluded.schema_version,
				updated_at=excluded.updated_at`,
			rec.SessionID, rec.ShareID, rec.TasterName, rec.AnonymousMode, string(attrs),
			rec.Origin, rec.Producer, rec.RoastLevel, rec.PreparationMethod, string(notes),
			rec.Cost, rec.Excluded, rec.Finalized, rec.SchemaVersion,
			rec.CreatedAt.UTC().Format(timeLayout), rec.UpdatedAt.UTC().Format(timeLayout))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

const sessionColumns = `session_id, share_id, taster_name, anonymous_mode, attributes,
	origin, producer, roast_level, preparation_method, flavor_notes,
	cost, excluded, finalized, schema_version, created_at, updated_at`

// Get returns the session with the given internal id.
func (s *Store) Get(ctx context.Context, sessionID string) (model.CuppingSession, error) {
	done := metrics.TimeStorageOp("get")
	defer done()
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM cupping_sessions WHERE session_id = ?`, sessionID)
	return scanSession(row)
}

// GetByShareID returns the session carrying the given public share id.
func (s *Store) GetByShareID(ctx context.Context, shareID string) (model.CuppingSession, error) {
	done := metrics.TimeStorageOp("get")
	defer done()
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM cupping_sessions WHERE share_id = ?`, shareID)
	return scanSession(row)
}

// ListAll returns every stored session ordered by creation time.
func (s *Store) ListAll(ctx context.Context) ([]model.CuppingSession, error) {
	done := metrics.TimeStorageOp("list_all")
	defer done()

	var out []model.CuppingSession
	err := retryOnce(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM cupping_sessions ORDER BY created_at ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			rec, err := scanSession(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return out, nil
}

// ShareIDExists reports whether a share id is already assigned.
func (s *Store) ShareIDExists(ctx context.Context, shareID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cupping_sessions WHERE share_id = ?`, shareID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return n > 0, nil
}

// AppendEvent appends one interaction event row.
func (s *Store) AppendEvent(ctx context.Context, e model.AnalyticsEvent) error {
	done := metrics.TimeStorageOp("append_event")
	defer done()

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	err = retryOnce(func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO analytics_events (event_type, share_id, timestamp, payload)
			VALUES (?, ?, ?, ?)`,
			string(e.EventType), e.ShareID, e.Timestamp.UTC().Format(timeLayout), string(payload))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// EventsByShareID returns all events for a share id, oldest first.
func (s *Store) EventsByShareID(ctx context.Context, shareID string) ([]model.AnalyticsEvent, error) {
	done := metrics.TimeStorageOp("query_events")
	defer done()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, share_id, timestamp, payload
		FROM analytics_events WHERE share_id = ?
		ORDER BY timestamp ASC, id ASC`, shareID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.AnalyticsEvent
	for rows.Next() {
		var (
			e       model.AnalyticsEvent
			typ     string
			ts      string
			payload string
		)
		if err := rows.Scan(&typ, &e.ShareID, &ts, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		e.EventType = model.EventType(typ)
		if e.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (model.CuppingSession, error) {
	var (
		rec     model.CuppingSession
		attrs   string
		notes   string
		created string
		updated string
	)
	err := row.Scan(&rec.SessionID, &rec.ShareID, &rec.TasterName, &rec.AnonymousMode, &attrs,
		&rec.Origin, &rec.Producer, &rec.RoastLevel, &rec.PreparationMethod, &notes,
		&rec.Cost, &rec.Excluded, &rec.Finalized, &rec.SchemaVersion, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CuppingSession{}, storage.ErrNotFound
	}
	if err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(notes), &rec.FlavorNotes); err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return model.CuppingSession{}, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return rec, nil
}
