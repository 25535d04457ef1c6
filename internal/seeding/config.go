// Package seeding generates synthetic students and lesson completions, posts
// them to a running orsheep service and checks the weekly leaderboard it
// serves.
package seeding

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/orsheep/internal/domain/ranking"
)

// Defaults used by cmd/seed when flags are omitted.
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultStudents    = 50
	DefaultCompletions = 1000
	DefaultTimeout     = 30 * time.Second
	DefaultLimit       = 10
	DefaultSettle      = 10 * time.Second
)

const (
	// spread keeps generated timestamps comfortably inside the 7-day window.
	spread           = 6 * 24 * time.Hour
	maxScore         = 10.0
	nullScoreChance  = 0.1
	pollInterval     = 100 * time.Millisecond
	progressInterval = time.Second
	channelFactor    = 2
)

// ErrInvalidConfig is returned for unusable seeding parameters.
var ErrInvalidConfig = errors.New("invalid seeding config")

// ErrVerification is returned when the served leaderboard breaks an ordering
// or shape guarantee.
var ErrVerification = errors.New("leaderboard verification failed")

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Students    int           // Number of students to create
	Completions int           // Number of completion events to post
	Workers     int           // Number of concurrent HTTP workers
	Timeout     time.Duration // Per-request timeout
	Settle      time.Duration // How long to wait for the service to persist events
	Policy      string        // Ranking policy to request
	Limit       int           // Leaderboard size to request
	Seed        uint64        // Random seed; zero picks one from the clock
	Verbose     bool          // Log every failed request
}

// Validate checks the config and normalizes the policy name.
func (c *Config) Validate() error {
	const op = "seeding.config.validate"
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%s: %w: empty base url", op, ErrInvalidConfig)
	case c.Students <= 0:
		return fmt.Errorf("%s: %w: students must be positive", op, ErrInvalidConfig)
	case c.Completions < 0:
		return fmt.Errorf("%s: %w: completions must not be negative", op, ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%s: %w: workers must be positive", op, ErrInvalidConfig)
	case c.Limit <= 0:
		return fmt.Errorf("%s: %w: limit must be positive", op, ErrInvalidConfig)
	}
	p, err := ranking.ParsePolicy(c.Policy)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidConfig, err)
	}
	c.Policy = p.String()
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	return nil
}

// Student is the body of PUT /students/{id} plus its id.
type Student struct {
	ID   string `json:"-"`
	Name string `json:"name"`
}

// Event is the body of POST /events.
type Event struct {
	EventID   string   `json:"event_id"`
	StudentID string   `json:"student_id"`
	LessonID  string   `json:"lesson_id"`
	Score     *float64 `json:"score"`
	Completed bool     `json:"completed"`
	TS        string   `json:"ts"`
}

// AckResponse is the response to POST /events.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	StudentsCreated    int
	StudentsFailed     int
	EventsGenerated    int
	EventsAccepted     int
	EventsDuplicate    int
	EventsFailed       int
	LeaderboardEntries int
	Mismatches         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
