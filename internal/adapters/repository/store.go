// Package repository provides the activity-records and name-lookup stores
// the weekly ranking reads from.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/orsheep/internal/domain/model"
)

// ActivityProvider returns completed lesson rows for a window.
type ActivityProvider interface {
	// CompletionsSince returns completed rows with CompletedAt >= since,
	// most recent first.
	CompletionsSince(ctx context.Context, since time.Time) ([]model.Completion, error)
}

// NameProvider resolves display names for a set of students.
type NameProvider interface {
	// StudentNames returns names for the given ids. Unknown ids are absent
	// from the result.
	StudentNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Store provides read/write access to lesson progress and student names.
type Store interface {
	ActivityProvider
	NameProvider

	// SaveCompletion inserts the row for c's student and lesson, or
	// replaces it when c is not older than the stored row.
	SaveCompletion(ctx context.Context, c model.Completion) error
	// UpsertStudent stores or renames a student.
	UpsertStudent(ctx context.Context, s model.Student) error
	// Count returns the number of stored lesson rows.
	Count(ctx context.Context) (int, error)

	Close() error
}

func validateCompletion(c model.Completion) error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalid)
	case strings.TrimSpace(c.StudentID) == "":
		return fmt.Errorf("%w: missing student id", ErrInvalid)
	case strings.TrimSpace(c.LessonID) == "":
		return fmt.Errorf("%w: missing lesson id", ErrInvalid)
	case c.CompletedAt.IsZero():
		return fmt.Errorf("%w: missing completion time", ErrInvalid)
	}
	return nil
}

func validateStudent(s model.Student) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: missing student id", ErrInvalid)
	}
	return nil
}
