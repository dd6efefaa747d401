package model_test

import (
	"testing"

	"github.com/cafecultura/cuppingd/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCuppingSession_CompositeScore(t *testing.T) {
	Convey("Given a session with attribute scores", t, func() {
		s := model.CuppingSession{
			Attributes: map[string]float64{
				"aroma":   8,
				"acidity": 7,
				"body":    9,
			},
		}

		Convey("Then the composite score is the arithmetic mean", func() {
			So(s.CompositeScore(), ShouldEqual, 8.0)
		})
	})

	Convey("Given a session with no attributes", t, func() {
		s := model.CuppingSession{}

		Convey("Then the composite score is zero, not a division error", func() {
			So(s.CompositeScore(), ShouldEqual, 0)
		})
	})
}

func TestCuppingSession_DisplayName(t *testing.T) {
	Convey("Given a session with a taster name", t, func() {
		s := model.CuppingSession{TasterName: "Rodrigo"}

		Convey("When anonymous mode is off", func() {
			So(s.DisplayName(), ShouldEqual, "Rodrigo")
		})

		Convey("When anonymous mode is on", func() {
			s.AnonymousMode = true
			So(s.DisplayName(), ShouldEqual, model.AnonymousPlaceholder)
		})
	})
}

func TestCuppingSession_Clone(t *testing.T) {
	Convey("Given a cloned session", t, func() {
		orig := model.CuppingSession{
			Attributes:  map[string]float64{"aroma": 8},
			FlavorNotes: []string{"citrus"},
		}
		clone := orig.Clone()

		Convey("Then mutating the clone leaves the original untouched", func() {
			clone.Attributes["aroma"] = 1
			clone.FlavorNotes[0] = "chocolate"
			So(orig.Attributes["aroma"], ShouldEqual, 8)
			So(orig.FlavorNotes[0], ShouldEqual, "citrus")
		})
	})
}

func TestValidEventType(t *testing.T) {
	Convey("Given the known interaction kinds", t, func() {
		for _, et := range []model.EventType{
			model.EventView, model.EventSocialShare, model.EventCardDownload, model.EventCopyLink,
		} {
			So(model.ValidEventType(et), ShouldBeTrue)
		}

		Convey("Then an unknown kind is rejected", func() {
			So(model.ValidEventType("telepathy"), ShouldBeFalse)
		})
	})
}
