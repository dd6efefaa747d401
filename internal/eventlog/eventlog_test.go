package eventlog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/internal/eventlog"
	. "github.com/smartystreets/goconvey/convey"
)

// eventStore is an in-memory append-only event sink for log tests.
type eventStore struct {
	mu        sync.Mutex
	events    []model.AnalyticsEvent
	appendErr error
}

func (s *eventStore) Put(context.Context, model.CuppingSession) error { return nil }

func (s *eventStore) Get(context.Context, string) (model.CuppingSession, error) {
	return model.CuppingSession{}, storage.ErrNotFound
}

func (s *eventStore) GetByShareID(context.Context, string) (model.CuppingSession, error) {
	return model.CuppingSession{}, storage.ErrNotFound
}

func (s *eventStore) ListAll(context.Context) ([]model.CuppingSession, error) { return nil, nil }

func (s *eventStore) ShareIDExists(context.Context, string) (bool, error) { return false, nil }

func (s *eventStore) AppendEvent(_ context.Context, e model.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, e)
	return nil
}

func (s *eventStore) EventsByShareID(_ context.Context, shareID string) ([]model.AnalyticsEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AnalyticsEvent
	for _, e := range s.events {
		if e.ShareID == shareID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *eventStore) Close() error { return nil }

func TestLog_Append(t *testing.T) {
	Convey("Given an event log with a fixed clock", t, func() {
		store := &eventStore{}
		tick := time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC)
		log := eventlog.New(store, eventlog.WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}))

		Convey("When appending valid events", func() {
			So(log.Append(context.Background(), eventlog.Input{EventType: model.EventView, ShareID: "abc123defg"}), ShouldBeNil)
			So(log.Append(context.Background(), eventlog.Input{
				EventType: model.EventSocialShare,
				ShareID:   "abc123defg",
				Payload:   map[string]string{"platform": "twitter"},
			}), ShouldBeNil)

			Convey("Then they come back in insertion order with server timestamps", func() {
				events, err := log.Query(context.Background(), "abc123defg")
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].EventType, ShouldEqual, model.EventView)
				So(events[1].EventType, ShouldEqual, model.EventSocialShare)
				So(events[0].Timestamp.Before(events[1].Timestamp), ShouldBeTrue)
			})
		})

		Convey("When appending an unknown event type", func() {
			err := log.Append(context.Background(), eventlog.Input{EventType: "like", ShareID: "abc123defg"})

			Convey("Then it is rejected and nothing is recorded", func() {
				So(errors.Is(err, eventlog.ErrUnknownEventType), ShouldBeTrue)
				So(store.events, ShouldBeEmpty)
			})
		})

		Convey("When the share id is missing", func() {
			err := log.Append(context.Background(), eventlog.Input{EventType: model.EventView})
			So(errors.Is(err, eventlog.ErrMissingShareID), ShouldBeTrue)
		})

		Convey("When the backing store fails", func() {
			store.appendErr = storage.ErrUnavailable
			err := log.Append(context.Background(), eventlog.Input{EventType: model.EventView, ShareID: "abc123defg"})

			Convey("Then the failure is surfaced, not swallowed", func() {
				So(errors.Is(err, storage.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestLog_EngagementSummary(t *testing.T) {
	Convey("Given a log with a mixed event history", t, func() {
		store := &eventStore{}
		log := eventlog.New(store)
		ctx := context.Background()

		record := func(in eventlog.Input) {
			So(log.Append(ctx, in), ShouldBeNil)
		}
		record(eventlog.Input{EventType: model.EventView, ShareID: "abc123defg"})
		record(eventlog.Input{EventType: model.EventView, ShareID: "abc123defg"})
		record(eventlog.Input{EventType: model.EventView, ShareID: "abc123defg"})
		record(eventlog.Input{EventType: model.EventSocialShare, ShareID: "abc123defg", Payload: map[string]string{"platform": "twitter"}})
		record(eventlog.Input{EventType: model.EventSocialShare, ShareID: "abc123defg", Payload: map[string]string{"platform": "twitter"}})
		record(eventlog.Input{EventType: model.EventSocialShare, ShareID: "abc123defg", Payload: map[string]string{"platform": "whatsapp"}})
		record(eventlog.Input{EventType: model.EventSocialShare, ShareID: "abc123defg"})
		record(eventlog.Input{EventType: model.EventCardDownload, ShareID: "abc123defg"})
		record(eventlog.Input{EventType: model.EventCopyLink, ShareID: "abc123defg"})
		record(eventlog.Input{EventType: model.EventView, ShareID: "other00000"})

		Convey("When summarizing one share id", func() {
			sum, err := log.EngagementSummary(ctx, "abc123defg")
			So(err, ShouldBeNil)

			Convey("Then counts split by type and platform, ignoring other ids", func() {
				So(sum.ViewCount, ShouldEqual, 3)
				So(sum.SharesByPlatform, ShouldResemble, map[string]int{
					"twitter":  2,
					"whatsapp": 1,
					"unknown":  1,
				})
				So(sum.DownloadCount, ShouldEqual, 1)
				So(sum.CopyLinkCount, ShouldEqual, 1)
			})
		})

		Convey("When summarizing a share id with no events", func() {
			sum, err := log.EngagementSummary(ctx, "empty00000")
			So(err, ShouldBeNil)
			So(sum.ViewCount, ShouldEqual, 0)
			So(sum.SharesByPlatform, ShouldBeEmpty)
		})
	})
}
