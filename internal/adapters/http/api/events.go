// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/internal/eventlog"
)

// EventsHandler handles interaction event ingestion and engagement reads.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the event ingestion contract.
type eventRequest struct {
	EventType string            `json:"event_type"`
	ShareID   string            `json:"share_id"`
	Payload   map[string]string `json:"payload,omitempty"`
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandlePostEvent handles POST /events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	err := h.deps.AppendEvent(r.Context(), eventlog.Input{
		EventType: model.EventType(req.EventType),
		ShareID:   req.ShareID,
		Payload:   req.Payload,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "recorded"})
}

// HandleEngagement handles GET /events/{share_id}/engagement.
func (h *EventsHandler) HandleEngagement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/events/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "engagement" {
		http.NotFound(w, r)
		return
	}
	sum, err := h.deps.EngagementSummary(r.Context(), parts[0])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
