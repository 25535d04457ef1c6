// Package model contains domain models passed between layers.
package model

import "time"

// ProgressEvent represents a lesson progress update submitted by clients.
// Fields mirror the OpenAPI schema for /events.
type ProgressEvent struct {
	EventID   string    // unique id for idempotency
	StudentID string    // student identifier
	LessonID  string    // lesson the student worked on
	Score     *float64  // quiz score, nil when no score was recorded
	Completed bool      // whether the lesson was finished
	TS        time.Time // event timestamp
}

// Completion is one student-lesson row as stored by the activity provider.
// A student holds at most one row per lesson. Completed rows inside the
// ranking window are what the leaderboard consumes.
type Completion struct {
	ID          string // event that last wrote the row
	StudentID   string
	LessonID    string
	Score       *float64
	Completed   bool
	CompletedAt time.Time
}

// Completion converts the event to the row persisted for it.
func (e ProgressEvent) Completion() Completion {
	return Completion{
		ID:          e.EventID,
		StudentID:   e.StudentID,
		LessonID:    e.LessonID,
		Score:       e.Score,
		Completed:   e.Completed,
		CompletedAt: e.TS,
	}
}

// Student maps a student identifier to its display name.
type Student struct {
	ID   string
	Name string
}

// Score returns a pointer to v, for building records with a present score.
func Score(v float64) *float64 { return &v }
