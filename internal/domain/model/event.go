package model

import "time"

// EventType enumerates the interaction kinds tracked per share link.
type EventType string

// Known interaction event types.
const (
	EventView         EventType = "view"
	EventSocialShare  EventType = "social_share"
	EventCardDownload EventType = "card_download"
	EventCopyLink     EventType = "copy_link"
)

// ValidEventType reports whether t is one of the known interaction kinds.
func ValidEventType(t EventType) bool {
	switch t {
	case EventView, EventSocialShare, EventCardDownload, EventCopyLink:
		return true
	}
	return false
}

// AnalyticsEvent is one append-only interaction log entry. The ShareID
// reference is weak: the session it points at may have been removed.
type AnalyticsEvent struct {
	EventType EventType         `json:"event_type"`
	ShareID   string            `json:"share_id"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload,omitempty"`
}
