// Package session provides the typed repository over the storage backend:
// creation with validation, public share-id lookup, anonymity and
// exclusion toggles, and the finalization gate on late edits.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/internal/domain/shareid"
	"github.com/cafecultura/cuppingd/pkg/logger"
	"github.com/cafecultura/cuppingd/pkg/metrics"
)

// Default validation bounds.
const (
	defaultMaxScore = 10.0
	minScore        = 0.0
)

// Input carries the fields a client submits when creating a session.
type Input struct {
	TasterName        string
	Attributes        map[string]float64
	Origin            string
	Producer          string
	RoastLevel        string
	PreparationMethod string
	FlavorNotes       []string
	Cost              float64
}

// Option applies a configuration option to the Repository.
type Option func(*Repository)

// WithMaxScore sets the upper attribute score bound.
func WithMaxScore(max float64) Option {
	return func(r *Repository) {
		if max > 0 {
			r.maxScore = max
		}
	}
}

// WithMinter sets a custom share id minter.
func WithMinter(m *shareid.Minter) Option {
	return func(r *Repository) {
		if m != nil {
			r.minter = m
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// Repository is the typed access layer over the storage backend.
type Repository struct {
	store    storage.Backend
	minter   *shareid.Minter
	maxScore float64
	now      func() time.Time
	log      logger.Logger
}

// New creates a Repository over store with default configuration.
func New(store storage.Backend, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		minter:   shareid.New(),
		maxScore: defaultMaxScore,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates input, assigns identifiers, persists the record, and
// returns the public share id. Validation failures are reported before
// anything is persisted.
func (r *Repository) Create(ctx context.Context, in Input, anonymous bool) (string, error) {
	if err := r.validate(in); err != nil {
		return "", err
	}

	shareID, err := r.minter.Mint(ctx, r.store.ShareIDExists)
	if err != nil {
		return "", err
	}

	now := r.now().UTC()
	rec := model.CuppingSession{
		SessionID:         uuid.NewString(),
		ShareID:           shareID,
		TasterName:        in.TasterName,
		AnonymousMode:     anonymous,
		Attributes:        in.Attributes,
		Origin:            in.Origin,
		Producer:          in.Producer,
		RoastLevel:        in.RoastLevel,
		PreparationMethod: in.PreparationMethod,
		FlavorNotes:       dedupeNotes(in.FlavorNotes),
		Cost:              in.Cost,
		SchemaVersion:     model.SchemaVersionCurrent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.store.Put(ctx, rec.Clone()); err != nil {
		return "", err
	}
	metrics.RecordSessionCreated()
	if r.log != nil {
		r.log.Info(ctx, "session created",
			logger.String("shareID", shareID),
			logger.String("origin", rec.Origin),
		)
	}
	return shareID, nil
}

// GetByID returns the session with the given internal id.
func (r *Repository) GetByID(ctx context.Context, sessionID string) (model.CuppingSession, error) {
	rec, err := r.store.Get(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.CuppingSession{}, fmt.Errorf("%w: id %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return model.CuppingSession{}, err
	}
	return rec, nil
}

// GetByShareID is the public-facing lookup. Its error text carries only
// the share id, never the internal session id.
func (r *Repository) GetByShareID(ctx context.Context, shareID string) (model.CuppingSession, error) {
	rec, err := r.store.GetByShareID(ctx, shareID)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.RecordShareLookup(false)
		return model.CuppingSession{}, fmt.Errorf("%w: share id %s", ErrNotFound, shareID)
	}
	if err != nil {
		return model.CuppingSession{}, err
	}
	metrics.RecordShareLookup(true)
	return rec, nil
}

// SetAnonymous updates the stored anonymity flag. Idempotent; the new
// value governs every subsequent rendering, including links shared
// before the toggle.
func (r *Repository) SetAnonymous(ctx context.Context, sessionID string, flag bool) error {
	return r.update(ctx, sessionID, func(rec *model.CuppingSession) error {
		rec.AnonymousMode = flag
		return nil
	})
}

// SetExcluded toggles soft exclusion. Excluded sessions stay reachable
// through their share link but drop out of community aggregates unless a
// query opts back in.
func (r *Repository) SetExcluded(ctx context.Context, sessionID string, flag bool) error {
	return r.update(ctx, sessionID, func(rec *model.CuppingSession) error {
		rec.Excluded = flag
		return nil
	})
}

// AddFlavorNotes appends late flavor notes. Fails with ErrFinalized once
// the session has been finalized.
func (r *Repository) AddFlavorNotes(ctx context.Context, sessionID string, notes ...string) error {
	return r.update(ctx, sessionID, func(rec *model.CuppingSession) error {
		if rec.Finalized {
			return ErrFinalized
		}
		existing := make(map[string]struct{}, len(rec.FlavorNotes))
		for _, n := range rec.FlavorNotes {
			existing[n] = struct{}{}
		}
		for _, n := range notes {
			if n == "" {
				continue
			}
			if _, ok := existing[n]; ok {
				continue
			}
			rec.FlavorNotes = append(rec.FlavorNotes, n)
			existing[n] = struct{}{}
		}
		return nil
	})
}

// UpdateAttributes sets or overwrites attribute scores, applying the same
// bound check as creation. Fails with ErrFinalized after finalization.
func (r *Repository) UpdateAttributes(ctx context.Context, sessionID string, attrs map[string]float64) error {
	for attr, score := range attrs {
		if score < minScore || score > r.maxScore {
			return &ValidationError{Field: "attributes." + attr, Reason: fmt.Sprintf("score %.2f outside [%.0f, %.0f]", score, minScore, r.maxScore)}
		}
	}
	return r.update(ctx, sessionID, func(rec *model.CuppingSession) error {
		if rec.Finalized {
			return ErrFinalized
		}
		if rec.Attributes == nil {
			rec.Attributes = map[string]float64{}
		}
		for attr, score := range attrs {
			rec.Attributes[attr] = score
		}
		return nil
	})
}

// Finalize closes the session for late edits. Idempotent.
func (r *Repository) Finalize(ctx context.Context, sessionID string) error {
	return r.update(ctx, sessionID, func(rec *model.CuppingSession) error {
		rec.Finalized = true
		return nil
	})
}

// ListAll returns every stored session. Used by the analytics engine;
// each record is returned whole or not at all.
func (r *Repository) ListAll(ctx context.Context) ([]model.CuppingSession, error) {
	return r.store.ListAll(ctx)
}

func (r *Repository) update(ctx context.Context, sessionID string, mutate func(*model.CuppingSession) error) error {
	rec, err := r.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	rec = rec.Clone()
	if err := mutate(&rec); err != nil {
		return err
	}
	rec.UpdatedAt = r.now().UTC()
	return r.store.Put(ctx, rec)
}

func dedupeNotes(notes []string) []string {
	out := make([]string, 0, len(notes))
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		out = append(out, n)
		seen[n] = struct{}{}
	}
	return out
}
