// Package service wires the stores, queue and workers together and exposes
// the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	eventqueue "github.com/okian/orsheep/internal/adapters/mq/queue"
	workerpool "github.com/okian/orsheep/internal/adapters/mq/worker"
	"github.com/okian/orsheep/internal/adapters/repository"
	"github.com/okian/orsheep/internal/domain/dedupe"
	"github.com/okian/orsheep/internal/domain/model"
	"github.com/okian/orsheep/internal/domain/ranking"
	"github.com/okian/orsheep/internal/domain/types"
	"github.com/okian/orsheep/pkg/logger"
	"github.com/okian/orsheep/pkg/metrics"
)

const (
	defaultWindow     = 7 * 24 * time.Hour
	defaultQueueSize  = 10_000
	defaultDedupeSize = 100_000
	defaultMaxLimit   = 100
	defaultMaxScore   = 10
)

// Service records lesson progress and serves weekly rankings.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	calculator *ranking.Calculator

	workerCount  int
	queueSize    int
	dedupeSize   int
	window       time.Duration
	maxLimit     int
	maxScore     float64
	fallbackName string
	now          func() time.Time

	ownsStore bool
	started   bool
	logger    logger.Logger
}

// New constructs a Service. Call Start before recording events.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		window:       defaultWindow,
		maxLimit:     defaultMaxLimit,
		maxScore:     defaultMaxScore,
		fallbackName: ranking.DefaultFallbackName,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calculator = ranking.NewCalculator(ranking.WithFallbackName(s.fallbackName))
	return s
}

// Start creates the queue and worker pool. Without WithStore an in-memory
// store is used.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.eventQueue, s.store,
		workerpool.WithWorkerCount(s.workerCount),
		workerpool.WithPoolLogger(s.logger.Named("workers")),
	)
	// Workers outlive the start request; Stop drains them by closing the queue.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Duration("window", s.window),
	)
	return nil
}

// Stop drains pending events. A store created by Start is closed and
// dropped; an injected one is left open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// Record validates e and queues it for storage. It reports duplicate=true
// when e.EventID was already accepted; the event is then dropped.
func (s *Service) Record(ctx context.Context, e model.ProgressEvent) (duplicate bool, err error) { //nolint:gocritic // hugeParam: events are passed by value to the queue
	const op = "service.record"

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}
	if err := s.validate(e); err != nil {
		metrics.RecordEventRejected("invalid")
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event skipped", logger.String("event_id", e.EventID))
		return true, nil
	}

	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		// Forget the id so the client can retry.
		s.deduper.Unrecord(ctx, e.EventID)
		if errors.Is(err, eventqueue.ErrFull) {
			metrics.RecordEventRejected("backpressure")
			return false, fmt.Errorf("%s: %w", op, ErrBackpressure)
		}
		metrics.RecordEventRejected("enqueue")
		return false, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordEventAccepted()
	return false, nil
}

func (s *Service) validate(e model.ProgressEvent) error { //nolint:gocritic // hugeParam
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidArgument)
	case strings.TrimSpace(e.StudentID) == "":
		return fmt.Errorf("%w: student_id is required", ErrInvalidArgument)
	case strings.TrimSpace(e.LessonID) == "":
		return fmt.Errorf("%w: lesson_id is required", ErrInvalidArgument)
	case e.TS.IsZero():
		return fmt.Errorf("%w: ts is required", ErrInvalidArgument)
	case e.Score != nil && (*e.Score < 0 || *e.Score > s.maxScore):
		return fmt.Errorf("%w: score must be between 0 and %g", ErrInvalidArgument, s.maxScore)
	}
	return nil
}

// UpsertStudent stores or renames a student.
func (s *Service) UpsertStudent(ctx context.Context, st model.Student) error {
	const op = "service.upsert_student"
	store, err := s.activeStore()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(st.ID) == "" {
		return fmt.Errorf("%s: %w: student id is required", op, ErrInvalidArgument)
	}
	if err := store.UpsertStudent(ctx, st); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WeeklyRanking returns the top limit students over the trailing window
// ending now.
func (s *Service) WeeklyRanking(ctx context.Context, limit int, policy ranking.Policy) (types.Leaderboard, error) {
	const op = "service.weekly_ranking"
	if limit > s.maxLimit {
		return types.Leaderboard{}, fmt.Errorf("%s: %w: limit %d exceeds %d", op, ErrInvalidArgument, limit, s.maxLimit)
	}

	end := s.now()
	start := end.Add(-s.window)
	rows, err := s.rank(ctx, start, limit, policy)
	if err != nil {
		return types.Leaderboard{}, fmt.Errorf("%s: %w", op, err)
	}

	board := types.Leaderboard{
		Policy:      policy.String(),
		WindowStart: start,
		WindowEnd:   end,
		Entries:     make([]types.Entry, len(rows)),
	}
	for i, r := range rows {
		board.Entries[i] = toEntry(r)
	}
	return board, nil
}

// StudentRank returns studentID's row within the largest board a client may
// request. ErrNotFound means the student is not on it.
func (s *Service) StudentRank(ctx context.Context, studentID string, policy ranking.Policy) (types.Entry, error) {
	const op = "service.student_rank"
	rows, err := s.rank(ctx, s.now().Add(-s.window), s.maxLimit, policy)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, r := range rows {
		if r.ID == studentID {
			return toEntry(r), nil
		}
	}
	return types.Entry{}, fmt.Errorf("%s: %w: student %q", op, ErrNotFound, studentID)
}

// rank reads the window starting at since and runs the calculator. Store
// errors are returned before the calculator runs.
func (s *Service) rank(ctx context.Context, since time.Time, limit int, policy ranking.Policy) ([]ranking.RankedStudent, error) {
	started := time.Now()
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}

	records, err := store.CompletionsSince(ctx, since)
	if err != nil {
		metrics.RecordStoreError("completions_since")
		return nil, err
	}
	names := ranking.NameLookup{}
	if len(records) > 0 {
		names, err = store.StudentNames(ctx, ranking.StudentIDs(records))
		if err != nil {
			metrics.RecordStoreError("student_names")
			return nil, err
		}
	}

	rows, err := s.calculator.Compute(records, names, limit, policy)
	if err != nil {
		return nil, err
	}
	metrics.RecordRanking(policy.String(), float64(time.Since(started).Microseconds())/1000, len(rows))
	s.logger.Debug(ctx, "ranking computed",
		logger.String("policy", policy.String()),
		logger.Int("records", len(records)),
		logger.Int("entries", len(rows)),
	)
	return rows, nil
}

func (s *Service) activeStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func toEntry(r ranking.RankedStudent) types.Entry {
	return types.Entry{
		Rank:             r.Rank,
		StudentID:        r.ID,
		Name:             r.Name,
		Metric:           r.Metric,
		CompletedLessons: r.CompletedCount,
		LastCompletionAt: r.LastCompletionAt,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"windowHours":  s.window.Hours(),
		"maxLimit":     s.maxLimit,
		"fallbackName": s.fallbackName,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.eventQueue.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["processed"] = s.workerPool.Processed()
	stats["failed"] = s.workerPool.Failed()
	if n, err := s.store.Count(ctx); err == nil {
		stats["completions"] = n
	} else {
		s.logger.Warn(ctx, "count failed", logger.Error(err))
	}
	metrics.UpdateQueueSize(s.eventQueue.Len())
	return stats
}
