// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and ORSHEEP_ environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`

	// EventQueueSize bounds the in-memory progress event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of workers persisting progress events.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DBPath is the SQLite database file. Empty keeps everything in memory.
	DBPath string `koanf:"db_path"`

	// WindowHours is the trailing ranking window.
	WindowHours int `koanf:"window_hours"`

	// WidgetLimit is the leaderboard size when the client does not ask for one.
	WidgetLimit int `koanf:"widget_limit"`

	// MaxLeaderboardLimit caps GET /ranking?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultPolicy is "average" or "points".
	DefaultPolicy string `koanf:"default_policy"`

	// FallbackName is shown for students without a known display name.
	FallbackName string `koanf:"fallback_name"`

	// MaxScore is the upper bound of a lesson quiz score.
	MaxScore float64 `koanf:"max_score"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		CORSOrigins:         []string{"http://localhost:5173"},
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		WindowHours:         7 * 24,
		WidgetLimit:         10,
		MaxLeaderboardLimit: 100,
		DefaultPolicy:       "average",
		FallbackName:        "Unknown Student",
		MaxScore:            10,
	}
}
