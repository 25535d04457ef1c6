package seeding

import "os"

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Orsheep Seeding Tool
====================

Creates synthetic students and lesson completions on a running orsheep
service, then fetches the weekly leaderboard and checks its ordering.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -students int
        Number of students to create (default 50)
  -completions int
        Number of completion events to post (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        How long to wait for events to be persisted (default 10s)
  -policy string
        Ranking policy to request: average or points (default "average")
  -limit int
        Leaderboard size to request (default 10)
  -seed uint
        Random seed; 0 uses the clock
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  # Seed a local service with defaults
  go run ./cmd/seed

  # Larger run checked under the points policy
  go run ./cmd/seed -students 500 -completions 20000 -policy points -limit 50
`)
}
