// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/analytics"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/internal/domain/shareid"
	"github.com/cafecultura/cuppingd/internal/eventlog"
	"github.com/cafecultura/cuppingd/internal/session"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSession(ctx context.Context, in session.Input, anonymous bool) (string, error)
	PublicSession(ctx context.Context, shareID string) (model.CuppingSession, error)
	SetAnonymous(ctx context.Context, sessionID string, flag bool) error
	SetExcluded(ctx context.Context, sessionID string, flag bool) error
	FinalizeSession(ctx context.Context, sessionID string) error

	CommunityTrends(ctx context.Context, f analytics.Filter) (model.AggregateSnapshot, error)
	TemporalTrend(ctx context.Context, bucket time.Duration, f analytics.Filter) ([]model.TrendBucket, error)
	SessionInsights(ctx context.Context, shareID string) ([]analytics.Insight, error)

	AppendEvent(ctx context.Context, in eventlog.Input) error
	EngagementSummary(ctx context.Context, shareID string) (eventlog.Summary, error)
}

// sessionInput mirrors the repository's creation input shape.
type sessionInput = session.Input

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithDefaultTrendBucket sets the temporal bucket width used when a
// query omits bucket_hours.
func WithDefaultTrendBucket(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.defaultBucket = d
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	defaultBucket time.Duration

	healthHandler    *HealthHandler
	sessionsHandler  *SessionsHandler
	publicHandler    *PublicHandler
	analyticsHandler *AnalyticsHandler
	eventsHandler    *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{defaultBucket: defaultTrendBucket}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.sessionsHandler = NewSessionsHandler(deps)
	s.publicHandler = NewPublicHandler(deps)
	s.analyticsHandler = NewAnalyticsHandler(deps, s.defaultBucket)
	s.eventsHandler = NewEventsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleUpdate, "sessions"))
	mux.HandleFunc("/cupping/", MetricsMiddleware(s.publicHandler.HandleGetShared, "cupping"))
	mux.HandleFunc("/analytics/trends", MetricsMiddleware(s.analyticsHandler.HandleTrends, "analytics_trends"))
	mux.HandleFunc("/analytics/temporal", MetricsMiddleware(s.analyticsHandler.HandleTemporal, "analytics_temporal"))
	mux.HandleFunc("/analytics/insights/", MetricsMiddleware(s.analyticsHandler.HandleInsights, "analytics_insights"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleEngagement, "events_engagement"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *session.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, eventlog.ErrUnknownEventType), errors.Is(err, eventlog.ErrMissingShareID):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, session.ErrFinalized):
		writeError(w, http.StatusConflict, "finalized", err)
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err)
	case errors.Is(err, shareid.ErrSpaceExhausted):
		writeError(w, http.StatusInternalServerError, "id_space_exhausted", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
