// Package types contains common types used across the application
package types

import "time"

// Entry represents a leaderboard row as served to clients.
type Entry struct {
	Rank             int       `json:"rank"`
	StudentID        string    `json:"student_id"`
	Name             string    `json:"name"`
	Metric           float64   `json:"metric"`
	CompletedLessons int       `json:"completed_lessons"`
	LastCompletionAt time.Time `json:"last_completion_at"`
}

// Leaderboard is a ranked weekly board together with the parameters it was
// computed with.
type Leaderboard struct {
	Policy      string    `json:"policy"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Entries     []Entry   `json:"entries"`
}
