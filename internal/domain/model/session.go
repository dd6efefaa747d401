// Package model contains domain models passed between layers.
package model

import "time"

// SchemaVersionCurrent is the persisted record layout version.
// Version 1 was the flat single-file layout; version 2 is per-record.
const SchemaVersionCurrent = 2

// AnonymousPlaceholder replaces the taster identity on every public
// rendering of a session stored with AnonymousMode set.
const AnonymousPlaceholder = "Anonymous Taster"

// CuppingSession represents one structured coffee evaluation record.
type CuppingSession struct {
	SessionID         string             `json:"session_id"`
	ShareID           string             `json:"share_id"`
	TasterName        string             `json:"taster_name"`
	AnonymousMode     bool               `json:"anonymous_mode"`
	Attributes        map[string]float64 `json:"attributes"`
	Origin            string             `json:"origin"`
	Producer          string             `json:"producer"`
	RoastLevel        string             `json:"roast_level"`
	PreparationMethod string             `json:"preparation_method"`
	FlavorNotes       []string           `json:"flavor_notes"`
	Cost              float64            `json:"cost"`
	Excluded          bool               `json:"excluded"`
	Finalized         bool               `json:"finalized"`
	SchemaVersion     int                `json:"schema_version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CompositeScore returns the mean across all numeric attributes.
// Returns 0 for a session with no attributes.
func (s CuppingSession) CompositeScore() float64 {
	if len(s.Attributes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Attributes {
		sum += v
	}
	return sum / float64(len(s.Attributes))
}

// DisplayName returns the identity used on public renderings,
// honoring the stored anonymity flag.
func (s CuppingSession) DisplayName() string {
	if s.AnonymousMode {
		return AnonymousPlaceholder
	}
	return s.TasterName
}

// Clone returns a deep copy so callers can mutate maps and slices
// without aliasing the stored record.
func (s CuppingSession) Clone() CuppingSession {
	out := s
	if s.Attributes != nil {
		out.Attributes = make(map[string]float64, len(s.Attributes))
		for k, v := range s.Attributes {
			out.Attributes[k] = v
		}
	}
	if s.FlavorNotes != nil {
		out.FlavorNotes = append([]string(nil), s.FlavorNotes...)
	}
	return out
}
