package model_test

import (
	"testing"
	"time"

	model "github.com/okian/orsheep/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestProgressEvent_Completion(t *testing.T) {
	convey.Convey("Given a completed progress event", t, func() {
		ts := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
		event := model.ProgressEvent{
			EventID:   "event-1",
			StudentID: "student-1",
			LessonID:  "lesson-1",
			Score:     model.Score(7.5),
			Completed: true,
			TS:        ts,
		}

		convey.Convey("When converting it to a completion row", func() {
			c := event.Completion()

			convey.Convey("Then every field carries over", func() {
				convey.So(c.ID, convey.ShouldEqual, "event-1")
				convey.So(c.StudentID, convey.ShouldEqual, "student-1")
				convey.So(c.LessonID, convey.ShouldEqual, "lesson-1")
				convey.So(*c.Score, convey.ShouldEqual, 7.5)
				convey.So(c.Completed, convey.ShouldBeTrue)
				convey.So(c.CompletedAt, convey.ShouldEqual, ts)
			})
		})
	})

	convey.Convey("Given an event without a score", t, func() {
		event := model.ProgressEvent{EventID: "event-2", StudentID: "student-2", Completed: true}

		convey.Convey("Then the completion keeps the score absent", func() {
			convey.So(event.Completion().Score, convey.ShouldBeNil)
		})
	})
}

func TestScore(t *testing.T) {
	convey.Convey("Score returns independent pointers", t, func() {
		a, b := model.Score(3), model.Score(3)
		*a = 9
		convey.So(*b, convey.ShouldEqual, 3.0)
	})
}
