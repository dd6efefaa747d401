package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/internal/session"
	. "github.com/smartystreets/goconvey/convey"
)

// memBackend is an in-memory storage.Backend for repository tests.
type memBackend struct {
	mu       sync.Mutex
	sessions map[string]model.CuppingSession
	events   []model.AnalyticsEvent
	putErr   error
}

func newMemBackend() *memBackend {
	return &memBackend{sessions: map[string]model.CuppingSession{}}
}

func (m *memBackend) Put(_ context.Context, s model.CuppingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *memBackend) Get(_ context.Context, sessionID string) (model.CuppingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return model.CuppingSession{}, storage.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memBackend) GetByShareID(_ context.Context, shareID string) (model.CuppingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ShareID == shareID {
			return s.Clone(), nil
		}
	}
	return model.CuppingSession{}, storage.ErrNotFound
}

func (m *memBackend) ListAll(_ context.Context) ([]model.CuppingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CuppingSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *memBackend) ShareIDExists(_ context.Context, shareID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ShareID == shareID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBackend) AppendEvent(_ context.Context, e model.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memBackend) EventsByShareID(_ context.Context, shareID string) ([]model.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AnalyticsEvent
	for _, e := range m.events {
		if e.ShareID == shareID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memBackend) Close() error { return nil }

func validInput() session.Input {
	return session.Input{
		TasterName: "Rodrigo",
		Attributes: map[string]float64{
			"aroma":   8.5,
			"acidity": 7.25,
			"body":    8,
		},
		Origin:            "Ethiopia",
		Producer:          "Cafe Cultura",
		RoastLevel:        "light",
		PreparationMethod: "pour over",
		FlavorNotes:       []string{"citrus", "floral"},
		Cost:              18.5,
	}
}

func TestRepository_Create(t *testing.T) {
	Convey("Given a repository over an empty backend", t, func() {
		store := newMemBackend()
		repo := session.New(store)

		Convey("When creating a valid session", func() {
			shareID, err := repo.Create(context.Background(), validInput(), true)
			So(err, ShouldBeNil)
			So(shareID, ShouldNotBeEmpty)

			Convey("Then the stored record round-trips anonymity and attributes exactly", func() {
				rec, err := repo.GetByShareID(context.Background(), shareID)
				So(err, ShouldBeNil)
				So(rec.AnonymousMode, ShouldBeTrue)
				So(rec.Attributes, ShouldResemble, validInput().Attributes)
				So(rec.FlavorNotes, ShouldResemble, []string{"citrus", "floral"})
				So(rec.SessionID, ShouldNotBeEmpty)
				So(rec.ShareID, ShouldEqual, shareID)
				So(rec.SchemaVersion, ShouldEqual, model.SchemaVersionCurrent)
			})
		})

		Convey("When creating with a missing required field", func() {
			in := validInput()
			in.Origin = ""
			_, err := repo.Create(context.Background(), in, false)

			Convey("Then the validation error names the field and nothing is persisted", func() {
				var vErr *session.ValidationError
				So(errors.As(err, &vErr), ShouldBeTrue)
				So(vErr.Field, ShouldEqual, "origin")
				all, _ := store.ListAll(context.Background())
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When an attribute score is out of bounds", func() {
			in := validInput()
			in.Attributes["body"] = 11
			_, err := repo.Create(context.Background(), in, false)

			Convey("Then the validation error names the attribute", func() {
				var vErr *session.ValidationError
				So(errors.As(err, &vErr), ShouldBeTrue)
				So(vErr.Field, ShouldEqual, "attributes.body")
			})
		})

		Convey("When duplicate flavor notes are submitted", func() {
			in := validInput()
			in.FlavorNotes = []string{"citrus", "citrus", "floral"}
			shareID, err := repo.Create(context.Background(), in, false)
			So(err, ShouldBeNil)

			Convey("Then the stored set keeps insertion order without duplicates", func() {
				rec, err := repo.GetByShareID(context.Background(), shareID)
				So(err, ShouldBeNil)
				So(rec.FlavorNotes, ShouldResemble, []string{"citrus", "floral"})
			})
		})
	})
}

func TestRepository_Lookups(t *testing.T) {
	Convey("Given a repository with one session", t, func() {
		store := newMemBackend()
		repo := session.New(store)
		shareID, err := repo.Create(context.Background(), validInput(), false)
		So(err, ShouldBeNil)
		rec, err := repo.GetByShareID(context.Background(), shareID)
		So(err, ShouldBeNil)

		Convey("Then GetByID resolves the internal id", func() {
			got, err := repo.GetByID(context.Background(), rec.SessionID)
			So(err, ShouldBeNil)
			So(got.ShareID, ShouldEqual, shareID)
		})

		Convey("Then an unknown share id yields not-found without the internal id", func() {
			_, err := repo.GetByShareID(context.Background(), "nope-nope")
			So(errors.Is(err, session.ErrNotFound), ShouldBeTrue)
			So(strings.Contains(err.Error(), rec.SessionID), ShouldBeFalse)
		})
	})
}

func TestRepository_SetAnonymous(t *testing.T) {
	Convey("Given a stored non-anonymous session", t, func() {
		store := newMemBackend()
		repo := session.New(store)
		shareID, err := repo.Create(context.Background(), validInput(), false)
		So(err, ShouldBeNil)
		before, err := repo.GetByShareID(context.Background(), shareID)
		So(err, ShouldBeNil)

		Convey("When toggling anonymity on", func() {
			So(repo.SetAnonymous(context.Background(), before.SessionID, true), ShouldBeNil)

			Convey("Then the next read through the existing share link is anonymized", func() {
				after, err := repo.GetByShareID(context.Background(), shareID)
				So(err, ShouldBeNil)
				So(session.Rendered(after).TasterName, ShouldEqual, model.AnonymousPlaceholder)
			})

			Convey("And no other field changed", func() {
				after, err := repo.GetByShareID(context.Background(), shareID)
				So(err, ShouldBeNil)
				So(after.Attributes, ShouldResemble, before.Attributes)
				So(after.FlavorNotes, ShouldResemble, before.FlavorNotes)
				So(after.Origin, ShouldEqual, before.Origin)
				So(after.TasterName, ShouldEqual, before.TasterName)
				So(after.CreatedAt, ShouldResemble, before.CreatedAt)
			})

			Convey("And the toggle is idempotent", func() {
				So(repo.SetAnonymous(context.Background(), before.SessionID, true), ShouldBeNil)
				after, err := repo.GetByShareID(context.Background(), shareID)
				So(err, ShouldBeNil)
				So(after.AnonymousMode, ShouldBeTrue)
			})
		})
	})
}

func TestRepository_Finalization(t *testing.T) {
	Convey("Given a stored session", t, func() {
		store := newMemBackend()
		now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
		repo := session.New(store, session.WithClock(func() time.Time { return now }))
		shareID, err := repo.Create(context.Background(), validInput(), false)
		So(err, ShouldBeNil)
		rec, err := repo.GetByShareID(context.Background(), shareID)
		So(err, ShouldBeNil)

		Convey("When appending late flavor notes before finalization", func() {
			So(repo.AddFlavorNotes(context.Background(), rec.SessionID, "chocolate", "citrus"), ShouldBeNil)

			Convey("Then new notes append and existing ones are not duplicated", func() {
				got, err := repo.GetByID(context.Background(), rec.SessionID)
				So(err, ShouldBeNil)
				So(got.FlavorNotes, ShouldResemble, []string{"citrus", "floral", "chocolate"})
			})
		})

		Convey("When updating attributes before finalization", func() {
			So(repo.UpdateAttributes(context.Background(), rec.SessionID, map[string]float64{"aroma": 9}), ShouldBeNil)
			got, err := repo.GetByID(context.Background(), rec.SessionID)
			So(err, ShouldBeNil)
			So(got.Attributes["aroma"], ShouldEqual, 9)
		})

		Convey("When the session is finalized", func() {
			So(repo.Finalize(context.Background(), rec.SessionID), ShouldBeNil)

			Convey("Then late edits are rejected", func() {
				err := repo.AddFlavorNotes(context.Background(), rec.SessionID, "chocolate")
				So(errors.Is(err, session.ErrFinalized), ShouldBeTrue)
				err = repo.UpdateAttributes(context.Background(), rec.SessionID, map[string]float64{"aroma": 9})
				So(errors.Is(err, session.ErrFinalized), ShouldBeTrue)
			})

			Convey("But anonymity can still be toggled", func() {
				So(repo.SetAnonymous(context.Background(), rec.SessionID, true), ShouldBeNil)
			})
		})
	})
}

func TestRepository_SetExcluded(t *testing.T) {
	Convey("Given a stored session", t, func() {
		store := newMemBackend()
		repo := session.New(store)
		shareID, err := repo.Create(context.Background(), validInput(), false)
		So(err, ShouldBeNil)
		rec, err := repo.GetByShareID(context.Background(), shareID)
		So(err, ShouldBeNil)

		Convey("When soft-excluding it", func() {
			So(repo.SetExcluded(context.Background(), rec.SessionID, true), ShouldBeNil)

			Convey("Then the share link still resolves", func() {
				got, err := repo.GetByShareID(context.Background(), shareID)
				So(err, ShouldBeNil)
				So(got.Excluded, ShouldBeTrue)
			})
		})
	})
}
