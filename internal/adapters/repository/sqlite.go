package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // database/sql driver "sqlite3"

	"github.com/okian/orsheep/internal/domain/model"
	"github.com/okian/orsheep/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 1
)

// SQLiteStore persists lesson progress and student names in SQLite.
type SQLiteStore struct {
	db           *sqlx.DB
	busyTimeout  time.Duration
	maxOpenConns int
}

var _ Store = (*SQLiteStore)(nil)

// completionRow is the student_lessons row shape. Times are unix nanoseconds
// so range filters compare as integers.
type completionRow struct {
	ID          string   `db:"id"`
	StudentID   string   `db:"student_id"`
	LessonID    string   `db:"lesson_id"`
	Score       *float64 `db:"score"`
	Completed   bool     `db:"completed"`
	CompletedAt int64    `db:"completed_at"`
}

func toRow(c model.Completion) completionRow {
	return completionRow{
		ID:          c.ID,
		StudentID:   c.StudentID,
		LessonID:    c.LessonID,
		Score:       c.Score,
		Completed:   c.Completed,
		CompletedAt: c.CompletedAt.UnixNano(),
	}
}

func (r completionRow) completion() model.Completion {
	return model.Completion{
		ID:          r.ID,
		StudentID:   r.StudentID,
		LessonID:    r.LessonID,
		Score:       r.Score,
		Completed:   r.Completed,
		CompletedAt: time.Unix(0, r.CompletedAt).UTC(),
	}
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	const op = "repository.open_sqlite"
	s := &SQLiteStore{
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, s.busyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(s.maxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	// m.Close would close s.db through the driver, so only the source is released.
	defer func() { _ = src.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLiteStore) SaveCompletion(ctx context.Context, c model.Completion) error {
	const op = "repository.save_completion"
	if err := validateCompletion(c); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO student_lessons (id, student_id, lesson_id, score, completed, completed_at)
		VALUES (:id, :student_id, :lesson_id, :score, :completed, :completed_at)
		ON CONFLICT(student_id, lesson_id) DO UPDATE SET
			id = excluded.id,
			score = excluded.score,
			completed = excluded.completed,
			completed_at = excluded.completed_at
		WHERE excluded.completed_at >= student_lessons.completed_at`, toRow(c))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) CompletionsSince(ctx context.Context, since time.Time) ([]model.Completion, error) {
	const op = "repository.completions_since"
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	var rows []completionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, student_id, lesson_id, score, completed, completed_at
		FROM student_lessons
		WHERE completed = 1 AND completed_at >= ?
		ORDER BY completed_at DESC, rowid ASC`, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}

	out := make([]model.Completion, len(rows))
	for i, r := range rows {
		out[i] = r.completion()
	}
	return out, nil
}

func (s *SQLiteStore) UpsertStudent(ctx context.Context, st model.Student) error {
	const op = "repository.upsert_student"
	if err := validateStudent(st); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`, st.ID, st.Name)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) StudentNames(ctx context.Context, ids []string) (map[string]string, error) {
	const op = "repository.student_names"
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(`SELECT id, name FROM students WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	var rows []model.Student
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM student_lessons`); err != nil {
		return 0, fmt.Errorf("repository.count: %w: %w", ErrStore, err)
	}
	metrics.UpdateTotalCompletions(n)
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
