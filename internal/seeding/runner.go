package seeding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/orsheep/pkg/logger"
)

// Run generates data, submits it, waits for the service to persist it and
// verifies the leaderboard it serves.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	const op = "seeding.run"
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("seeding")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("students", cfg.Students),
		logger.Int("completions", cfg.Completions),
		logger.Int("workers", cfg.Workers),
		logger.String("policy", cfg.Policy),
		logger.Int("limit", cfg.Limit))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}

	gen := newGenerator(cfg.Seed, time.Now())
	students := gen.students(cfg.Students)
	events := gen.events(students, cfg.Completions)
	stats.EventsGenerated = len(events)

	submitStudents(ctx, cfg, client, students, stats)
	submitEvents(ctx, cfg, client, events, stats)
	log.Info(ctx, "submission completed",
		logger.Int("studentsCreated", stats.StudentsCreated),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed))
	if stats.StudentsFailed > 0 || stats.EventsFailed > 0 {
		return stats, fmt.Errorf("%s: %d students and %d events were not accepted", op, stats.StudentsFailed, stats.EventsFailed)
	}

	log.Info(ctx, "waiting for events to be processed")
	if err := waitProcessed(ctx, cfg, client, stats.EventsAccepted); err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}

	board, err := fetchLeaderboard(ctx, cfg, client)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}
	if err := verifyResults(ctx, cfg, board, students, events, stats); err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service answers on /healthz.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsAccepted+stats.EventsDuplicate) / stats.Duration.Seconds()
	}
	logger.Get().Named("seeding").Info(ctx, "final statistics",
		logger.Int("studentsCreated", stats.StudentsCreated),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
