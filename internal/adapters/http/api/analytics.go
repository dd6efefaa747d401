// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cafecultura/cuppingd/internal/domain/analytics"
)

// timeFormat is the wire format for timestamps in query params and bodies.
const timeFormat = time.RFC3339

// defaultTrendBucket is used when a temporal query omits bucket_hours.
const defaultTrendBucket = 24 * time.Hour

// AnalyticsHandler serves aggregate queries.
type AnalyticsHandler struct {
	deps          Dependencies
	defaultBucket time.Duration
}

// NewAnalyticsHandler creates a new analytics handler. defaultBucket is
// the temporal bucket width applied when a query omits bucket_hours.
func NewAnalyticsHandler(deps Dependencies, defaultBucket time.Duration) *AnalyticsHandler {
	if defaultBucket <= 0 {
		defaultBucket = defaultTrendBucket
	}
	return &AnalyticsHandler{deps: deps, defaultBucket: defaultBucket}
}

// parseFilter reads the optional filter query params shared by the
// aggregate endpoints: origin, from, to, include_excluded.
func parseFilter(r *http.Request) (analytics.Filter, error) {
	const op = "api.parse_filter"
	var f analytics.Filter
	q := r.URL.Query()
	f.Origin = q.Get("origin")
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(timeFormat, v)
		if err != nil {
			return analytics.Filter{}, WrapKind(op, ErrBadRequest, err)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(timeFormat, v)
		if err != nil {
			return analytics.Filter{}, WrapKind(op, ErrBadRequest, err)
		}
		f.To = t
	}
	if v := q.Get("include_excluded"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return analytics.Filter{}, WrapKind(op, ErrBadRequest, err)
		}
		f.IncludeExcluded = b
	}
	return f, nil
}

// HandleTrends handles GET /analytics/trends.
func (h *AnalyticsHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := h.deps.CommunityTrends(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleTemporal handles GET /analytics/temporal?bucket_hours=N.
func (h *AnalyticsHandler) HandleTemporal(w http.ResponseWriter, r *http.Request) {
	const op = "api.temporal"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	bucket := h.defaultBucket
	if v := r.URL.Query().Get("bucket_hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		bucket = time.Duration(hours) * time.Hour
	}
	buckets, err := h.deps.TemporalTrend(r.Context(), bucket, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// HandleInsights handles GET /analytics/insights/{share_id}.
func (h *AnalyticsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	shareID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/analytics/insights/"), "/")
	if shareID == "" || strings.Contains(shareID, "/") {
		http.NotFound(w, r)
		return
	}
	insights, err := h.deps.SessionInsights(r.Context(), shareID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}
