// Package storage defines the durable session store interface and errors.
package storage

import (
	"context"

	"github.com/cafecultura/cuppingd/internal/domain/model"
)

// Backend provides durable read/write access to cupping sessions and the
// append-only interaction event log. Two interchangeable implementations
// exist: a per-record file store and a SQLite table, selected by config.
// All implementations must be safe under concurrent invocation and must
// write each record atomically.
type Backend interface {
	// Put writes or replaces a full session record.
	Put(ctx context.Context, s model.CuppingSession) error

	// Get returns the session with the given internal id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, sessionID string) (model.CuppingSession, error)

	// GetByShareID returns the session with the given public share id.
	// Returns ErrNotFound if the id is unknown.
	GetByShareID(ctx context.Context, shareID string) (model.CuppingSession, error)

	// ListAll returns every stored session. Each record is returned whole
	// or not at all; snapshot isolation across records is not guaranteed.
	ListAll(ctx context.Context) ([]model.CuppingSession, error)

	// ShareIDExists reports whether a share id is already assigned.
	ShareIDExists(ctx context.Context, shareID string) (bool, error)

	// AppendEvent appends one interaction event. Records are never
	// mutated or deleted afterwards.
	AppendEvent(ctx context.Context, e model.AnalyticsEvent) error

	// EventsByShareID returns all events for a share id ordered by
	// timestamp ascending.
	EventsByShareID(ctx context.Context, shareID string) ([]model.AnalyticsEvent, error)

	// Close releases backend resources.
	Close() error
}
