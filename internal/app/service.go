// Package app provides the core business service that implements
// the dependencies required by the HTTP API.
package app

import (
	"context"
	"time"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/analytics"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/internal/domain/shareid"
	"github.com/cafecultura/cuppingd/internal/eventlog"
	"github.com/cafecultura/cuppingd/internal/session"
	"github.com/cafecultura/cuppingd/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithShareIDLength sets the minted public identifier length.
func WithShareIDLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shareIDLength = n
		}
	}
}

// WithShareIDMaxRetries bounds collision retries when minting share ids.
func WithShareIDMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shareIDMaxRetries = n
		}
	}
}

// WithMaxAttributeScore sets the upper attribute score bound.
func WithMaxAttributeScore(max float64) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxAttributeScore = max
		}
	}
}

// Service wires the session repository, analytics engine, and event log
// over one storage backend and exposes the operations the API needs.
type Service struct {
	store  storage.Backend
	repo   *session.Repository
	engine *analytics.Engine
	events *eventlog.Log
	log    logger.Logger

	shareIDLength     int
	shareIDMaxRetries int
	maxAttributeScore float64
}

// New constructs a Service over store with default configuration.
func New(store storage.Backend, opts ...Option) *Service {
	s := &Service{
		store:             store,
		shareIDLength:     10,
		shareIDMaxRetries: 5,
		maxAttributeScore: 10,
	}
	for _, opt := range opts {
		opt(s)
	}

	minter := shareid.New(
		shareid.WithLength(s.shareIDLength),
		shareid.WithMaxRetries(s.shareIDMaxRetries),
	)
	repoOpts := []session.Option{
		session.WithMinter(minter),
		session.WithMaxScore(s.maxAttributeScore),
	}
	if s.log != nil {
		repoOpts = append(repoOpts, session.WithLogger(s.log))
	}
	s.repo = session.New(store, repoOpts...)
	s.engine = analytics.New(s.repo)
	s.events = eventlog.New(store)
	return s
}

// CreateSession validates and persists a new session, returning its
// public share id.
func (s *Service) CreateSession(ctx context.Context, in session.Input, anonymous bool) (string, error) {
	return s.repo.Create(ctx, in, anonymous)
}

// PublicSession resolves a share link into the rendered public view,
// with the taster identity honoring the stored anonymity flag.
func (s *Service) PublicSession(ctx context.Context, shareID string) (model.CuppingSession, error) {
	rec, err := s.repo.GetByShareID(ctx, shareID)
	if err != nil {
		return model.CuppingSession{}, err
	}
	return session.Rendered(rec), nil
}

// SetAnonymous toggles the stored anonymity flag.
func (s *Service) SetAnonymous(ctx context.Context, sessionID string, flag bool) error {
	return s.repo.SetAnonymous(ctx, sessionID, flag)
}

// SetExcluded toggles soft exclusion from community aggregates.
func (s *Service) SetExcluded(ctx context.Context, sessionID string, flag bool) error {
	return s.repo.SetExcluded(ctx, sessionID, flag)
}

// FinalizeSession closes a session for late edits.
func (s *Service) FinalizeSession(ctx context.Context, sessionID string) error {
	return s.repo.Finalize(ctx, sessionID)
}

// AddFlavorNotes appends late flavor notes prior to finalization.
func (s *Service) AddFlavorNotes(ctx context.Context, sessionID string, notes ...string) error {
	return s.repo.AddFlavorNotes(ctx, sessionID, notes...)
}

// UpdateAttributes sets attribute scores prior to finalization.
func (s *Service) UpdateAttributes(ctx context.Context, sessionID string, attrs map[string]float64) error {
	return s.repo.UpdateAttributes(ctx, sessionID, attrs)
}

// CommunityTrends recomputes the full aggregate snapshot.
func (s *Service) CommunityTrends(ctx context.Context, f analytics.Filter) (model.AggregateSnapshot, error) {
	return s.engine.CommunityTrends(ctx, f)
}

// TemporalTrend recomputes the bucketed quality trend.
func (s *Service) TemporalTrend(ctx context.Context, bucket time.Duration, f analytics.Filter) ([]model.TrendBucket, error) {
	return s.engine.TemporalTrend(ctx, bucket, f)
}

// SessionInsights resolves a share id and derives its comparative
// observations against the rest of the community.
func (s *Service) SessionInsights(ctx context.Context, shareID string) ([]analytics.Insight, error) {
	rec, err := s.repo.GetByShareID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	return s.engine.SessionInsights(ctx, rec)
}

// AppendEvent records one share-link interaction.
func (s *Service) AppendEvent(ctx context.Context, in eventlog.Input) error {
	return s.events.Append(ctx, in)
}

// EngagementSummary derives the engagement rollup for one share id.
func (s *Service) EngagementSummary(ctx context.Context, shareID string) (eventlog.Summary, error) {
	return s.events.EngagementSummary(ctx, shareID)
}

// Close releases the underlying storage backend.
func (s *Service) Close() error {
	return s.store.Close()
}
