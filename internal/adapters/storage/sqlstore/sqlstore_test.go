package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/adapters/storage/sqlstore"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.New(context.Background(), filepath.Join(t.TempDir(), "cupping.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSession(id, shareID string, created time.Time) model.CuppingSession {
	return model.CuppingSession{
		SessionID:         id,
		ShareID:           shareID,
		TasterName:        "Marta",
		Attributes:        map[string]float64{"aroma": 8, "body": 7.5},
		Origin:            "Colombia",
		Producer:          "Finca El Paraiso",
		RoastLevel:        "medium",
		PreparationMethod: "espresso",
		FlavorNotes:       []string{"caramel", "cherry"},
		Cost:              14,
		SchemaVersion:     model.SchemaVersionCurrent,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func TestStore_Sessions(t *testing.T) {
	Convey("Given a SQLite store in a fresh database", t, func() {
		store := openStore(t)
		ctx := context.Background()
		created := time.Date(2025, time.April, 2, 10, 0, 0, 0, time.UTC)

		Convey("When a session is written", func() {
			rec := sampleSession("sess-1", "share00001", created)
			So(store.Put(ctx, rec), ShouldBeNil)

			Convey("Then it round-trips by id and by share id", func() {
				got, err := store.Get(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, rec)

				got, err = store.GetByShareID(ctx, "share00001")
				So(err, ShouldBeNil)
				So(got.SessionID, ShouldEqual, "sess-1")
			})

			Convey("And ShareIDExists sees it", func() {
				ok, err := store.ShareIDExists(ctx, "share00001")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				ok, err = store.ShareIDExists(ctx, "share-none")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And a second Put for the same id upserts in place", func() {
				rec.Attributes["aroma"] = 9
				rec.Finalized = true
				So(store.Put(ctx, rec), ShouldBeNil)

				got, err := store.Get(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(got.Attributes["aroma"], ShouldEqual, 9)
				So(got.Finalized, ShouldBeTrue)

				all, err := store.ListAll(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
			})
		})

		Convey("When several sessions exist", func() {
			So(store.Put(ctx, sampleSession("sess-b", "share-bbbb", created.Add(time.Hour))), ShouldBeNil)
			So(store.Put(ctx, sampleSession("sess-a", "share-aaaa", created)), ShouldBeNil)

			Convey("Then ListAll returns them ordered by creation time", func() {
				all, err := store.ListAll(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(all[0].SessionID, ShouldEqual, "sess-a")
				So(all[1].SessionID, ShouldEqual, "sess-b")
			})
		})

		Convey("When creation times differ only by a sub-second fraction", func() {
			So(store.Put(ctx, sampleSession("sess-b", "share-bbbb", created.Add(500*time.Millisecond))), ShouldBeNil)
			So(store.Put(ctx, sampleSession("sess-a", "share-aaaa", created)), ShouldBeNil)

			Convey("Then ListAll still orders chronologically", func() {
				all, err := store.ListAll(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(all[0].SessionID, ShouldEqual, "sess-a")
				So(all[1].SessionID, ShouldEqual, "sess-b")
			})
		})

		Convey("When an unknown id is requested", func() {
			_, err := store.Get(ctx, "missing")
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)

			_, err = store.GetByShareID(ctx, "missing")
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestStore_Events(t *testing.T) {
	Convey("Given a SQLite store", t, func() {
		store := openStore(t)
		ctx := context.Background()
		base := time.Date(2025, time.April, 2, 10, 0, 0, 0, time.UTC)

		Convey("When events for two share ids are appended", func() {
			for i, e := range []model.AnalyticsEvent{
				{EventType: model.EventView, ShareID: "share-one"},
				{EventType: model.EventCopyLink, ShareID: "share-two"},
				{EventType: model.EventSocialShare, ShareID: "share-one", Payload: map[string]string{"platform": "twitter"}},
			} {
				e.Timestamp = base.Add(time.Duration(i) * time.Second)
				So(store.AppendEvent(ctx, e), ShouldBeNil)
			}

			Convey("Then the query filters by share id, oldest first, with payload intact", func() {
				events, err := store.EventsByShareID(ctx, "share-one")
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].EventType, ShouldEqual, model.EventView)
				So(events[1].EventType, ShouldEqual, model.EventSocialShare)
				So(events[1].Payload, ShouldResemble, map[string]string{"platform": "twitter"})
			})

			Convey("And same-second events with sub-second fractions keep chronological order", func() {
				whole := model.AnalyticsEvent{EventType: model.EventView, ShareID: "share-sub", Timestamp: base.Add(time.Minute)}
				fractional := model.AnalyticsEvent{EventType: model.EventCopyLink, ShareID: "share-sub", Timestamp: base.Add(time.Minute + 500*time.Millisecond)}
				So(store.AppendEvent(ctx, whole), ShouldBeNil)
				So(store.AppendEvent(ctx, fractional), ShouldBeNil)

				events, err := store.EventsByShareID(ctx, "share-sub")
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].EventType, ShouldEqual, model.EventView)
				So(events[1].EventType, ShouldEqual, model.EventCopyLink)
			})

			Convey("And an id with no events yields an empty result", func() {
				events, err := store.EventsByShareID(ctx, "share-none")
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
			})
		})
	})
}

func TestStore_Reopen(t *testing.T) {
	Convey("Given a store that was written to and closed", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "cupping.db")
		ctx := context.Background()
		created := time.Date(2025, time.April, 2, 10, 0, 0, 0, time.UTC)

		store, err := sqlstore.New(ctx, path)
		So(err, ShouldBeNil)
		So(store.Put(ctx, sampleSession("sess-1", "share00001", created)), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("When the same database is reopened", func() {
			again, err := sqlstore.New(ctx, path)
			So(err, ShouldBeNil)
			defer again.Close()

			Convey("Then migrations are idempotent and data survives", func() {
				got, err := again.Get(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(got.ShareID, ShouldEqual, "share00001")
			})
		})
	})
}
