package seeding

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/orsheep/internal/adapters/http/api"
	service "github.com/okian/orsheep/internal/app"
	"github.com/okian/orsheep/internal/domain/types"
	"github.com/okian/orsheep/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a seeding config", t, func() {
		cfg := Config{BaseURL: "http://x", Students: 1, Completions: 1, Workers: 1, Limit: 5, Policy: " Points "}

		Convey("When it is complete", func() {
			err := cfg.Validate()

			Convey("Then the policy is normalized and defaults are filled", func() {
				So(err, ShouldBeNil)
				So(cfg.Policy, ShouldEqual, "points")
				So(cfg.Timeout, ShouldEqual, DefaultTimeout)
				So(cfg.Settle, ShouldEqual, DefaultSettle)
			})
		})

		Convey("When a field is unusable", func() {
			bad := []func(c *Config){
				func(c *Config) { c.BaseURL = "" },
				func(c *Config) { c.Students = 0 },
				func(c *Config) { c.Completions = -1 },
				func(c *Config) { c.Workers = 0 },
				func(c *Config) { c.Limit = 0 },
				func(c *Config) { c.Policy = "median" },
			}

			Convey("Then validation fails with ErrInvalidConfig", func() {
				for _, mutate := range bad {
					c := cfg
					mutate(&c)
					So(errors.Is(c.Validate(), ErrInvalidConfig), ShouldBeTrue)
				}
			})
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
		gen := newGenerator(7, now)
		students := gen.students(20)
		events := gen.events(students, 500)

		Convey("Then every student has an id and a name", func() {
			So(students, ShouldHaveLength, 20)
			for _, s := range students {
				So(s.ID, ShouldNotBeBlank)
				So(s.Name, ShouldNotBeBlank)
			}
		})

		Convey("Then events are completed, scored in range and inside the window", func() {
			So(events, ShouldHaveLength, 500)
			known := nameLookup(students)
			nulls := 0
			for _, e := range events {
				So(e.Completed, ShouldBeTrue)
				So(known, ShouldContainKey, e.StudentID)
				So(strings.HasPrefix(e.LessonID, "lesson-"), ShouldBeTrue)
				if e.Score == nil {
					nulls++
				} else {
					So(*e.Score, ShouldBeBetweenOrEqual, 0, maxScore)
				}
				at, err := time.Parse(time.RFC3339, e.TS)
				So(err, ShouldBeNil)
				So(at.After(now), ShouldBeFalse)
				So(at.Before(now.Add(-spread-time.Second)), ShouldBeFalse)
			}
			So(nulls, ShouldBeGreaterThan, 0)
			So(nulls, ShouldBeLessThan, len(events)/2)
		})

		Convey("Then converted completions are ordered newest first", func() {
			records, err := completions(events)
			So(err, ShouldBeNil)
			So(len(records), ShouldBeLessThanOrEqualTo, len(events))
			seen := map[string]bool{}
			for i, r := range records {
				k := r.StudentID + "/" + r.LessonID
				So(seen[k], ShouldBeFalse)
				seen[k] = true
				if i > 0 {
					So(r.CompletedAt.After(records[i-1].CompletedAt), ShouldBeFalse)
				}
			}
		})

		Convey("Then a repeated lesson keeps only its latest event", func() {
			older := Event{EventID: "e1", StudentID: "s1", LessonID: "l1", Score: nil, Completed: true, TS: "2024-05-08T10:00:00Z"}
			newer := Event{EventID: "e2", StudentID: "s1", LessonID: "l1", Completed: true, TS: "2024-05-09T10:00:00Z"}
			records, err := completions([]Event{newer, older})
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].ID, ShouldEqual, "e2")
		})

		Convey("Then no students means no events", func() {
			So(gen.events(nil, 10), ShouldBeEmpty)
		})
	})
}

func TestVerify(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	entry := func(rank int, id string, metric float64, last time.Time) types.Entry {
		return types.Entry{Rank: rank, StudentID: id, Name: "n-" + id, Metric: metric, CompletedLessons: 1, LastCompletionAt: last}
	}

	Convey("Given a well-formed average board", t, func() {
		board := types.Leaderboard{Policy: "average", Entries: []types.Entry{
			entry(1, "a", 9.5, at),
			entry(2, "b", 8, at.Add(-time.Hour)),
			entry(3, "c", 8, at),
		}}

		Convey("Then it verifies cleanly", func() {
			So(Verify(board, 3, "average"), ShouldBeEmpty)
		})

		Convey("Then exceeding the limit is reported", func() {
			So(Verify(board, 2, "average"), ShouldHaveLength, 1)
		})

		Convey("Then a later completion ahead on an equal average is reported", func() {
			board.Entries[1].LastCompletionAt, board.Entries[2].LastCompletionAt = at, at.Add(-time.Hour)
			So(Verify(board, 3, "average"), ShouldHaveLength, 1)
		})

		Convey("Then the same tie order is fine under points", func() {
			board.Policy = "points"
			board.Entries[1].LastCompletionAt, board.Entries[2].LastCompletionAt = at, at.Add(-time.Hour)
			So(Verify(board, 3, "points"), ShouldBeEmpty)
		})

		Convey("Then broken ranks, duplicates and rising metrics are each reported", func() {
			board.Entries[2] = entry(4, "a", 9.9, at)
			errs := Verify(board, 3, "average")
			So(errs, ShouldHaveLength, 3)
		})
	})
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running service behind the HTTP API", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(1000))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(api.NewServer(svc).Routes(ctx))
		defer srv.Close()

		for _, policy := range []string{"average", "points"} {
			Convey("When seeding and verifying under "+policy, func() {
				cfg := &Config{
					BaseURL:     srv.URL,
					Students:    12,
					Completions: 150,
					Workers:     4,
					Timeout:     5 * time.Second,
					Settle:      5 * time.Second,
					Policy:      policy,
					Limit:       5,
					Seed:        42,
				}
				stats, err := Run(ctx, cfg)

				Convey("Then every request is accepted and the board verifies", func() {
					So(err, ShouldBeNil)
					So(stats.StudentsCreated, ShouldEqual, 12)
					So(stats.EventsAccepted, ShouldEqual, 150)
					So(stats.EventsFailed, ShouldEqual, 0)
					So(stats.LeaderboardEntries, ShouldEqual, 5)
				})
			})
		}
	})
}

func TestRunUnreachable(t *testing.T) {
	Convey("Given no service at the base url", t, func() {
		srv := httptest.NewServer(nil)
		url := srv.URL
		srv.Close()

		Convey("Then the run stops at the health check", func() {
			_, err := Run(context.Background(), &Config{
				BaseURL: url, Students: 1, Workers: 1, Limit: 1, Timeout: time.Second,
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "connect to service")
		})
	})
}
