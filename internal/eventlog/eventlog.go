// Package eventlog records share-link interaction events and derives
// engagement metrics from them. The log is append-only: entries are
// written exactly once at interaction time and never mutated.
package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/pkg/metrics"
)

// payloadPlatformKey names the payload attribute carrying the social
// platform of a share event.
const payloadPlatformKey = "platform"

// Input is one interaction reported by the presentation layer.
type Input struct {
	EventType model.EventType
	ShareID   string
	Payload   map[string]string
}

// Summary is the engagement rollup for one share id, derived by a single
// pass over its event sequence.
type Summary struct {
	ViewCount        int            `json:"view_count"`
	SharesByPlatform map[string]int `json:"share_count_by_platform"`
	DownloadCount    int            `json:"download_count"`
	CopyLinkCount    int            `json:"copy_link_count"`
}

// Option applies a configuration option to the Log.
type Option func(*Log)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// Log is the append-only interaction record.
type Log struct {
	store storage.Backend
	now   func() time.Time
}

// New creates a Log over store.
func New(store storage.Backend, opts ...Option) *Log {
	l := &Log{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append validates and persists one event, stamping the timestamp
// server-side so log order matches insertion order. A storage failure is
// surfaced to the caller, never swallowed.
func (l *Log) Append(ctx context.Context, in Input) error {
	if !model.ValidEventType(in.EventType) {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, in.EventType)
	}
	if in.ShareID == "" {
		return ErrMissingShareID
	}
	e := model.AnalyticsEvent{
		EventType: in.EventType,
		ShareID:   in.ShareID,
		Timestamp: l.now().UTC(),
		Payload:   in.Payload,
	}
	if err := l.store.AppendEvent(ctx, e); err != nil {
		return err
	}
	metrics.RecordEventAppended(string(in.EventType))
	return nil
}

// Query returns all events for a share id ordered by timestamp ascending.
// The share id reference is weak: querying an id whose session was
// removed still returns its events.
func (l *Log) Query(ctx context.Context, shareID string) ([]model.AnalyticsEvent, error) {
	return l.store.EventsByShareID(ctx, shareID)
}

// EngagementSummary derives the engagement rollup in one pass over the
// share id's event sequence.
func (l *Log) EngagementSummary(ctx context.Context, shareID string) (Summary, error) {
	events, err := l.Query(ctx, shareID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{SharesByPlatform: map[string]int{}}
	for _, e := range events {
		switch e.EventType {
		case model.EventView:
			sum.ViewCount++
		case model.EventSocialShare:
			platform := e.Payload[payloadPlatformKey]
			if platform == "" {
				platform = "unknown"
			}
			sum.SharesByPlatform[platform]++
		case model.EventCardDownload:
			sum.DownloadCount++
		case model.EventCopyLink:
			sum.CopyLinkCount++
		}
	}
	return sum, nil
}
