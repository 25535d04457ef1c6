package seeding

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/orsheep/internal/domain/model"
)

var (
	firstNames = []string{
		"Ana", "Bao", "Chloe", "Dario", "Elif", "Farah", "Goran", "Hana",
		"Ivan", "Jun", "Kemal", "Lina", "Minh", "Nora", "Omar", "Priya",
		"Quinn", "Rosa", "Sami", "Tuan", "Uma", "Vera", "Wen", "Yara", "Zeno",
	}
	lastInitials = []rune("ABCDEFGHIJKLMNOPRSTVWZ")
)

const lessons = 60

// generator builds synthetic data from a seeded source.
type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(seed uint64, now time.Time) *generator {
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

// students returns n students with random ids and readable names.
func (g *generator) students(n int) []Student {
	out := make([]Student, n)
	for i := range out {
		first := firstNames[g.rng.IntN(len(firstNames))]
		last := lastInitials[g.rng.IntN(len(lastInitials))]
		out[i] = Student{ID: uuid.NewString(), Name: fmt.Sprintf("%s %c.", first, last)}
	}
	return out
}

// events returns n completed-lesson events spread over students. Some
// students are picked more often than others so the points board has a
// spread. Roughly one in ten events carries no score.
func (g *generator) events(students []Student, n int) []Event {
	if len(students) == 0 {
		return nil
	}
	out := make([]Event, n)
	for i := range out {
		// Squaring skews picks toward the front of the list.
		f := g.rng.Float64()
		s := students[int(f*f*float64(len(students)))]

		var score *float64
		if g.rng.Float64() >= nullScoreChance {
			score = model.Score(math.Round(g.rng.Float64()*maxScore*10) / 10)
		}
		at := g.now.Add(-time.Duration(g.rng.Int64N(int64(spread)))).Truncate(time.Second)
		out[i] = Event{
			EventID:   uuid.NewString(),
			StudentID: s.ID,
			LessonID:  fmt.Sprintf("lesson-%03d", g.rng.IntN(lessons)+1),
			Score:     score,
			Completed: true,
			TS:        at.UTC().Format(time.RFC3339),
		}
	}
	return out
}

// completions converts accepted events to the rows the service keeps: one
// per student and lesson, the latest event winning, ordered newest first.
func completions(events []Event) ([]model.Completion, error) {
	type key struct{ student, lesson string }
	latest := make(map[key]int, len(events))
	out := make([]model.Completion, 0, len(events))
	for _, e := range events {
		if !e.Completed {
			continue
		}
		at, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return nil, fmt.Errorf("seeding.completions: event %s: %w", e.EventID, err)
		}
		c := model.Completion{
			ID:          e.EventID,
			StudentID:   e.StudentID,
			LessonID:    e.LessonID,
			Score:       e.Score,
			Completed:   true,
			CompletedAt: at,
		}
		k := key{e.StudentID, e.LessonID}
		if i, ok := latest[k]; ok {
			if !at.Before(out[i].CompletedAt) {
				out[i] = c
			}
			continue
		}
		latest[k] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func nameLookup(students []Student) map[string]string {
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.Name
	}
	return names
}
