// Package ranking computes the weekly student leaderboard from completed
// lesson records.
//
// The calculator is a pure transformation: it performs no I/O and reads no
// clock. Callers hand it records already restricted to the ranking window and
// to completed lessons, plus a name lookup covering those students.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/orsheep/internal/domain/model"
)

// DefaultFallbackName is shown for students missing from the name lookup.
const DefaultFallbackName = "Unknown Student"

// NameLookup maps student ids to display names. Partial coverage is fine.
type NameLookup map[string]string

// RankedStudent is one leaderboard row.
type RankedStudent struct {
	Rank int
	ID   string
	Name string
	// Metric is the rounded average score or the point count, by policy.
	Metric           float64
	CompletedCount   int
	LastCompletionAt time.Time
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithFallbackName sets the name used for students absent from the lookup.
func WithFallbackName(name string) Option {
	return func(c *Calculator) {
		if name != "" {
			c.fallbackName = name
		}
	}
}

// Calculator ranks students. The zero value is not usable; use NewCalculator.
// A Calculator holds no mutable state and may be shared between goroutines.
type Calculator struct {
	fallbackName string
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{fallbackName: DefaultFallbackName}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute ranks students with the default calculator.
func Compute(records []model.Completion, names NameLookup, limit int, policy Policy) ([]RankedStudent, error) {
	return NewCalculator().Compute(records, names, limit, policy)
}

// group accumulates one student's records in encounter order.
type group struct {
	id         string
	scoreSum   float64
	scoreCount int
	count      int
	last       time.Time
	metric     float64
}

// Compute groups records per student, aggregates them under policy, sorts,
// truncates to limit and assigns contiguous 1-based ranks.
func (c *Calculator) Compute(records []model.Completion, names NameLookup, limit int, policy Policy) ([]RankedStudent, error) {
	const op = "ranking.compute"
	if limit <= 0 {
		return nil, fmt.Errorf("%s: %w: limit must be positive, got %d", op, ErrInvalidArgument, limit)
	}
	if !policy.valid() {
		return nil, fmt.Errorf("%s: %w: unknown policy %s", op, ErrInvalidArgument, policy)
	}

	groups := groupRecords(records)
	for _, g := range groups {
		switch policy {
		case Average:
			g.metric = g.average()
		case Points:
			g.metric = float64(g.count)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.metric != b.metric {
			return a.metric > b.metric
		}
		if policy == Average {
			return a.last.Before(b.last)
		}
		return false
	})

	if len(groups) > limit {
		groups = groups[:limit]
	}

	out := make([]RankedStudent, len(groups))
	for i, g := range groups {
		name, ok := names[g.id]
		if !ok || name == "" {
			name = c.fallbackName
		}
		out[i] = RankedStudent{
			Rank:             i + 1,
			ID:               g.id,
			Name:             name,
			Metric:           g.metric,
			CompletedCount:   g.count,
			LastCompletionAt: g.last,
		}
	}
	return out, nil
}

func groupRecords(records []model.Completion) []*group {
	index := make(map[string]*group)
	groups := make([]*group, 0)
	for _, r := range records {
		g, ok := index[r.StudentID]
		if !ok {
			g = &group{id: r.StudentID}
			index[r.StudentID] = g
			groups = append(groups, g)
		}
		g.count++
		if r.Score != nil {
			g.scoreSum += *r.Score
			g.scoreCount++
		}
		if r.CompletedAt.After(g.last) {
			g.last = r.CompletedAt
		}
	}
	return groups
}

// average is the mean of present scores rounded to one decimal; 0 when none.
func (g *group) average() float64 {
	if g.scoreCount == 0 {
		return 0
	}
	return roundTenth(g.scoreSum / float64(g.scoreCount))
}

func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}

// StudentIDs returns the distinct student ids of records in encounter order.
func StudentIDs(records []model.Completion) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.StudentID]; ok {
			continue
		}
		seen[r.StudentID] = struct{}{}
		ids = append(ids, r.StudentID)
	}
	return ids
}
