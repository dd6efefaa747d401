// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SessionsHandler handles session creation and lifecycle updates.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// createSessionRequest mirrors the session creation input contract.
type createSessionRequest struct {
	TasterName        string             `json:"taster_name"`
	AnonymousMode     bool               `json:"anonymous_mode"`
	Attributes        map[string]float64 `json:"attributes"`
	Origin            string             `json:"origin"`
	Producer          string             `json:"producer"`
	RoastLevel        string             `json:"roast_level"`
	PreparationMethod string             `json:"preparation_method"`
	FlavorNotes       []string           `json:"flavor_notes"`
	Cost              float64            `json:"cost"`
}

type createSessionResponse struct {
	ShareID string `json:"share_id"`
}

type flagRequest struct {
	Value bool `json:"value"`
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	shareID, err := h.deps.CreateSession(r.Context(), req.toInput(), req.AnonymousMode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{ShareID: shareID})
}

// HandleUpdate handles lifecycle updates under /sessions/{id}/...:
// PATCH anonymous, PATCH exclude, POST finalize.
func (h *SessionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_session"
	sessionID, action, ok := splitSessionPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "anonymous" && r.Method == http.MethodPatch:
		var req flagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetAnonymous(r.Context(), sessionID, req.Value); err != nil {
			writeDomainError(w, err)
			return
		}
	case action == "exclude" && r.Method == http.MethodPatch:
		var req flagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetExcluded(r.Context(), sessionID, req.Value); err != nil {
			writeDomainError(w, err)
			return
		}
	case action == "finalize" && r.Method == http.MethodPost:
		if err := h.deps.FinalizeSession(r.Context(), sessionID); err != nil {
			writeDomainError(w, err)
			return
		}
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (req createSessionRequest) toInput() sessionInput {
	return sessionInput{
		TasterName:        req.TasterName,
		Attributes:        req.Attributes,
		Origin:            req.Origin,
		Producer:          req.Producer,
		RoastLevel:        req.RoastLevel,
		PreparationMethod: req.PreparationMethod,
		FlavorNotes:       req.FlavorNotes,
		Cost:              req.Cost,
	}
}

// splitSessionPath extracts id and action from /sessions/{id}/{action}.
func splitSessionPath(path string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
