package seeding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/orsheep/internal/domain/types"
	"github.com/okian/orsheep/pkg/logger"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
	base   string
}

func newHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, base: base}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

// getJSON performs a GET and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// tally counts outcomes across workers.
type tally struct {
	ok, duplicate, failed atomic.Int64
	lastReport            atomic.Int64
}

func (t *tally) add(o outcome) {
	switch o {
	case outcomeOK:
		t.ok.Add(1)
	case outcomeDuplicate:
		t.duplicate.Add(1)
	default:
		t.failed.Add(1)
	}
}

func (t *tally) done() int64 { return t.ok.Load() + t.duplicate.Load() + t.failed.Load() }

// fanOut runs fn over items with a fixed worker pool, logging progress at
// most once per progressInterval.
func fanOut[T any](ctx context.Context, phase string, workers int, items []T, fn func(context.Context, T) outcome) *tally {
	log := logger.Get().Named("seeding")
	t := &tally{}
	ch := make(chan T, workers*channelFactor)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				if ctx.Err() != nil {
					t.add(outcomeFailed)
					continue
				}
				t.add(fn(ctx, item))

				now := time.Now().UnixNano()
				last := t.lastReport.Load()
				if now-last >= int64(progressInterval) && t.lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.String("phase", phase),
						logger.Any("done", t.done()),
						logger.Int("total", len(items)),
						logger.Any("failed", t.failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case ch <- item:
			}
		}
	}()

	wg.Wait()
	return t
}

// submitStudents PUTs every student's display name.
func submitStudents(ctx context.Context, cfg *Config, client *HTTPClient, students []Student, stats *Stats) {
	log := logger.Get().Named("seeding")
	t := fanOut(ctx, "students", cfg.Workers, students, func(ctx context.Context, s Student) outcome {
		resp, err := client.do(ctx, http.MethodPut, "/students/"+url.PathEscape(s.ID), s)
		if err != nil {
			if cfg.Verbose {
				log.Warn(ctx, "student upsert failed", logger.String("studentID", s.ID), logger.Error(err))
			}
			return outcomeFailed
		}
		defer drain(resp)
		if resp.StatusCode != http.StatusNoContent {
			if cfg.Verbose {
				log.Warn(ctx, "student upsert rejected", logger.String("studentID", s.ID), logger.Int("status", resp.StatusCode))
			}
			return outcomeFailed
		}
		return outcomeOK
	})
	stats.StudentsCreated = int(t.ok.Load())
	stats.StudentsFailed = len(students) - stats.StudentsCreated
}

// submitEvents POSTs events and classifies each acknowledgement.
func submitEvents(ctx context.Context, cfg *Config, client *HTTPClient, events []Event, stats *Stats) {
	log := logger.Get().Named("seeding")
	t := fanOut(ctx, "events", cfg.Workers, events, func(ctx context.Context, e Event) outcome {
		resp, err := client.do(ctx, http.MethodPost, "/events", e)
		if err != nil {
			if cfg.Verbose {
				log.Warn(ctx, "event submit failed", logger.String("eventID", e.EventID), logger.Error(err))
			}
			return outcomeFailed
		}
		defer drain(resp)

		switch resp.StatusCode {
		case http.StatusAccepted:
			return outcomeOK
		case http.StatusOK:
			var ack AckResponse
			if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && !ack.Duplicate {
				return outcomeOK
			}
			return outcomeDuplicate
		default:
			if cfg.Verbose {
				log.Warn(ctx, "event rejected", logger.String("eventID", e.EventID), logger.Int("status", resp.StatusCode))
			}
			return outcomeFailed
		}
	})
	stats.EventsAccepted = int(t.ok.Load())
	stats.EventsDuplicate = int(t.duplicate.Load())
	stats.EventsFailed = int(t.failed.Load()) + len(events) - int(t.done())
}

// fetchLeaderboard reads GET /ranking with the configured limit and policy.
func fetchLeaderboard(ctx context.Context, cfg *Config, client *HTTPClient) (types.Leaderboard, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(cfg.Limit))
	q.Set("policy", cfg.Policy)
	var board types.Leaderboard
	if err := client.getJSON(ctx, "/ranking?"+q.Encode(), &board); err != nil {
		return types.Leaderboard{}, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return board, nil
}

// waitProcessed polls /stats until the service reports at least want
// handled events, saved or failed, or the settle time runs out.
func waitProcessed(ctx context.Context, cfg *Config, client *HTTPClient, want int) error {
	deadline := time.Now().Add(cfg.Settle)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var stats map[string]any
		if err := client.getJSON(ctx, "/stats", &stats); err == nil {
			processed, _ := stats["processed"].(float64)
			failed, _ := stats["failed"].(float64)
			if int(processed+failed) >= want {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("events not processed within %s", cfg.Settle)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
