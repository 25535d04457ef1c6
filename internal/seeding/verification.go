package seeding

import (
	"context"
	"fmt"

	"github.com/okian/orsheep/internal/domain/ranking"
	"github.com/okian/orsheep/internal/domain/types"
	"github.com/okian/orsheep/pkg/logger"
)

// Verify checks the shape and ordering guarantees of a served leaderboard:
// at most limit rows, ranks 1..N, unique students, a non-increasing metric,
// and for the average policy an earlier last completion first on equal
// metrics. It returns every violation found.
func Verify(board types.Leaderboard, limit int, policy string) []error {
	var errs []error
	if len(board.Entries) > limit {
		errs = append(errs, fmt.Errorf("%d entries exceed limit %d", len(board.Entries), limit))
	}
	if board.Policy != policy {
		errs = append(errs, fmt.Errorf("policy %q served for %q", board.Policy, policy))
	}

	seen := make(map[string]struct{}, len(board.Entries))
	for i, e := range board.Entries {
		if e.Rank != i+1 {
			errs = append(errs, fmt.Errorf("row %d has rank %d", i, e.Rank))
		}
		if _, dup := seen[e.StudentID]; dup {
			errs = append(errs, fmt.Errorf("student %s listed twice", e.StudentID))
		}
		seen[e.StudentID] = struct{}{}
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("student %s has no name", e.StudentID))
		}
		if i == 0 {
			continue
		}
		prev := board.Entries[i-1]
		if e.Metric > prev.Metric {
			errs = append(errs, fmt.Errorf("rank %d metric %.1f above rank %d metric %.1f", e.Rank, e.Metric, prev.Rank, prev.Metric))
		}
		if policy == ranking.Average.String() && e.Metric == prev.Metric && e.LastCompletionAt.Before(prev.LastCompletionAt) {
			errs = append(errs, fmt.Errorf("rank %d completed earlier than rank %d on an equal average", e.Rank, prev.Rank))
		}
	}
	return errs
}

// compare reports rows of the served board that differ from the locally
// computed one. Exact ties resolved by arrival order may legitimately
// differ, so callers treat mismatches as warnings.
func compare(board types.Leaderboard, want []ranking.RankedStudent) int {
	mismatches := 0
	for i, w := range want {
		if i >= len(board.Entries) {
			mismatches++
			continue
		}
		got := board.Entries[i]
		if got.StudentID != w.ID || got.Metric != w.Metric || got.CompletedLessons != w.CompletedCount {
			mismatches++
		}
	}
	if len(board.Entries) > len(want) {
		mismatches += len(board.Entries) - len(want)
	}
	return mismatches
}

// verifyResults runs Verify and the local recomputation, logging the
// outcome.
func verifyResults(ctx context.Context, cfg *Config, board types.Leaderboard, students []Student, events []Event, stats *Stats) error {
	log := logger.Get().Named("seeding")
	stats.LeaderboardEntries = len(board.Entries)

	if errs := Verify(board, cfg.Limit, cfg.Policy); len(errs) > 0 {
		for _, err := range errs {
			log.Error(ctx, "leaderboard violation", logger.Error(err))
		}
		return fmt.Errorf("%w: %d violations", ErrVerification, len(errs))
	}

	records, err := completions(events)
	if err != nil {
		return err
	}
	policy, err := ranking.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}
	want, err := ranking.Compute(records, nameLookup(students), cfg.Limit, policy)
	if err != nil {
		return fmt.Errorf("local ranking: %w", err)
	}
	stats.Mismatches = compare(board, want)
	if stats.Mismatches > 0 {
		log.Warn(ctx, "served leaderboard differs from local computation",
			logger.Int("mismatches", stats.Mismatches),
			logger.Int("entries", len(want)))
	}

	for _, e := range board.Entries {
		log.Info(ctx, "leaderboard row",
			logger.Int("rank", e.Rank),
			logger.String("name", e.Name),
			logger.Float64("metric", e.Metric),
			logger.Int("completed", e.CompletedLessons))
	}
	return nil
}
