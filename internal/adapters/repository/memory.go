package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/orsheep/internal/domain/model"
	"github.com/okian/orsheep/pkg/metrics"
)

// MemoryStore is a Store held entirely in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	completions map[lessonKey]memoryRow
	students    map[string]string
	seq         uint64
	closed      bool
}

// memoryRow remembers insertion order so equal timestamps read back stably.
type memoryRow struct {
	model.Completion
	seq uint64
}

// lessonKey identifies the single row a student holds for a lesson.
type lessonKey struct {
	student, lesson string
}

var _ Store = (*MemoryStore)(nil)

func closedErr(op string) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, ErrClosed)
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		completions: make(map[lessonKey]memoryRow),
		students:    make(map[string]string),
	}
}

func (s *MemoryStore) SaveCompletion(_ context.Context, c model.Completion) error {
	if err := validateCompletion(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedErr("repository.save_completion")
	}
	key := lessonKey{student: c.StudentID, lesson: c.LessonID}
	row, ok := s.completions[key]
	switch {
	case !ok:
		s.seq++
		row.seq = s.seq
	case c.CompletedAt.Before(row.CompletedAt):
		return nil
	}
	row.Completion = c
	s.completions[key] = row
	metrics.UpdateTotalCompletions(len(s.completions))
	return nil
}

func (s *MemoryStore) CompletionsSince(_ context.Context, since time.Time) ([]model.Completion, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, closedErr("repository.completions_since")
	}

	rows := make([]memoryRow, 0)
	for _, r := range s.completions {
		if r.Completed && !r.CompletedAt.Before(since) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CompletedAt.Equal(rows[j].CompletedAt) {
			return rows[i].CompletedAt.After(rows[j].CompletedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]model.Completion, len(rows))
	for i, r := range rows {
		out[i] = r.Completion
	}
	return out, nil
}

func (s *MemoryStore) UpsertStudent(_ context.Context, st model.Student) error {
	if err := validateStudent(st); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedErr("repository.upsert_student")
	}
	s.students[st.ID] = st.Name
	return nil
}

func (s *MemoryStore) StudentNames(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, closedErr("repository.student_names")
	}
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if name, ok := s.students[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, closedErr("repository.count")
	}
	return len(s.completions), nil
}

// Close marks the store closed; later calls fail with ErrClosed wrapped in
// ErrStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
