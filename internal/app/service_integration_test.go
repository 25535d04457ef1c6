package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/orsheep/internal/adapters/repository"
	service "github.com/okian/orsheep/internal/app"
	"github.com/okian/orsheep/internal/domain/model"
	"github.com/okian/orsheep/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// waitProcessed polls stats until n events have been stored or the deadline passes.
func waitProcessed(svc *service.Service, n int64) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p, _ := svc.GetStats()["processed"].(int64); p >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by SQLite with several workers", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := repository.OpenSQLite(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer store.Close()

		svc := service.New(
			service.WithStore(store),
			service.WithClock(clock),
			service.WithWorkerCount(4),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
			service.WithMaxLimit(50),
			service.WithFallbackName("Anonymous"),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a week of lessons is recorded", func() {
			students := map[string]string{"s1": "Ana", "s2": "Bo", "s3": "Cy"}
			for id, name := range students {
				So(svc.UpsertStudent(ctx, model.Student{ID: id, Name: name}), ShouldBeNil)
			}

			events := []model.ProgressEvent{
				{EventID: "e1", StudentID: "s1", LessonID: "l1", Score: model.Score(9), Completed: true, TS: now.Add(-5 * 24 * time.Hour)},
				{EventID: "e2", StudentID: "s1", LessonID: "l2", Score: model.Score(8), Completed: true, TS: now.Add(-4 * 24 * time.Hour)},
				{EventID: "e3", StudentID: "s2", LessonID: "l1", Score: model.Score(10), Completed: true, TS: now.Add(-3 * 24 * time.Hour)},
				{EventID: "e4", StudentID: "s2", LessonID: "l2", Score: nil, Completed: true, TS: now.Add(-2 * 24 * time.Hour)},
				{EventID: "e5", StudentID: "s3", LessonID: "l1", Score: model.Score(10), Completed: false, TS: now.Add(-time.Hour)},
				{EventID: "e6", StudentID: "s4", LessonID: "l1", Score: model.Score(6), Completed: true, TS: now.Add(-time.Hour)},
				{EventID: "e7", StudentID: "s3", LessonID: "l3", Score: model.Score(10), Completed: true, TS: now.Add(-9 * 24 * time.Hour)},
			}
			for _, e := range events {
				duplicate, err := svc.Record(ctx, e)
				So(err, ShouldBeNil)
				So(duplicate, ShouldBeFalse)
			}
			duplicate, err := svc.Record(ctx, events[0])
			So(err, ShouldBeNil)
			So(duplicate, ShouldBeTrue)
			So(waitProcessed(svc, int64(len(events))), ShouldBeTrue)

			Convey("Then the average board reflects only completed lessons inside the window", func() {
				board, err := svc.WeeklyRanking(ctx, 10, ranking.Average)
				So(err, ShouldBeNil)
				So(board.Entries, ShouldHaveLength, 3)

				So(board.Entries[0].StudentID, ShouldEqual, "s2")
				So(board.Entries[0].Name, ShouldEqual, "Bo")
				So(board.Entries[0].Metric, ShouldEqual, 10)
				So(board.Entries[0].CompletedLessons, ShouldEqual, 2)

				So(board.Entries[1].StudentID, ShouldEqual, "s1")
				So(board.Entries[1].Metric, ShouldEqual, 8.5)

				So(board.Entries[2].StudentID, ShouldEqual, "s4")
				So(board.Entries[2].Name, ShouldEqual, "Anonymous")
			})

			Convey("Then the points board counts lessons", func() {
				board, err := svc.WeeklyRanking(ctx, 10, ranking.Points)
				So(err, ShouldBeNil)
				So(board.Entries, ShouldHaveLength, 3)
				So(board.Entries[0].Metric, ShouldEqual, 2)
				So(board.Entries[1].Metric, ShouldEqual, 2)
				So(board.Entries[2].StudentID, ShouldEqual, "s4")
				So(board.Entries[2].Metric, ShouldEqual, 1)
			})

			Convey("Then stats count every stored row", func() {
				stats := svc.GetStats()
				So(stats["completions"], ShouldEqual, len(events))
				So(stats["failed"], ShouldEqual, int64(0))
			})
		})

		Convey("When more students than the limit finish lessons", func() {
			const total = 60
			for i := 0; i < total; i++ {
				_, err := svc.Record(ctx, model.ProgressEvent{
					EventID:   fmt.Sprintf("bulk-%d", i),
					StudentID: fmt.Sprintf("student-%02d", i),
					LessonID:  "l1",
					Score:     model.Score(float64(i%11) * 0.9),
					Completed: true,
					TS:        now.Add(-time.Duration(i) * time.Minute),
				})
				So(err, ShouldBeNil)
			}
			So(waitProcessed(svc, total), ShouldBeTrue)

			board, err := svc.WeeklyRanking(ctx, 50, ranking.Average)

			Convey("Then the board holds exactly the limit, ordered and ranked", func() {
				So(err, ShouldBeNil)
				So(board.Entries, ShouldHaveLength, 50)
				seen := map[string]bool{}
				for i, e := range board.Entries {
					So(e.Rank, ShouldEqual, i+1)
					So(seen[e.StudentID], ShouldBeFalse)
					seen[e.StudentID] = true
					if i > 0 {
						So(board.Entries[i-1].Metric, ShouldBeGreaterThanOrEqualTo, e.Metric)
					}
				}
			})
		})
	})
}
