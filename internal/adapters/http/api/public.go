// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// PublicHandler serves the share-link read path. Responses render the
// taster identity through the stored anonymity flag and never expose the
// internal session id.
type PublicHandler struct {
	deps Dependencies
}

// NewPublicHandler creates a new public lookup handler.
func NewPublicHandler(deps Dependencies) *PublicHandler {
	return &PublicHandler{deps: deps}
}

// publicSessionResponse is the rendered share-link view.
type publicSessionResponse struct {
	ShareID           string             `json:"share_id"`
	Taster            string             `json:"taster"`
	Attributes        map[string]float64 `json:"attributes"`
	CompositeScore    float64            `json:"composite_score"`
	Origin            string             `json:"origin"`
	Producer          string             `json:"producer"`
	RoastLevel        string             `json:"roast_level"`
	PreparationMethod string             `json:"preparation_method"`
	FlavorNotes       []string           `json:"flavor_notes"`
	Cost              float64            `json:"cost"`
	CreatedAt         string             `json:"created_at"`
}

// HandleGetShared handles GET /cupping/{share_id}.
func (h *PublicHandler) HandleGetShared(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	shareID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/cupping/"), "/")
	if shareID == "" || strings.Contains(shareID, "/") {
		http.NotFound(w, r)
		return
	}

	rec, err := h.deps.PublicSession(r.Context(), shareID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicSessionResponse{
		ShareID:           rec.ShareID,
		Taster:            rec.TasterName, // already rendered through the anonymity flag
		Attributes:        rec.Attributes,
		CompositeScore:    rec.CompositeScore(),
		Origin:            rec.Origin,
		Producer:          rec.Producer,
		RoastLevel:        rec.RoastLevel,
		PreparationMethod: rec.PreparationMethod,
		FlavorNotes:       rec.FlavorNotes,
		Cost:              rec.Cost,
		CreatedAt:         rec.CreatedAt.Format(timeFormat),
	})
}
