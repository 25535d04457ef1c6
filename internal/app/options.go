package service

import (
	"time"

	"github.com/okian/orsheep/internal/adapters/repository"
	"github.com/okian/orsheep/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the store progress is written to and rankings are read
// from. The caller keeps ownership and closes it after Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWindow sets the trailing window the weekly ranking covers.
func WithWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithClock replaces time.Now as the source of the window end.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFallbackName sets the display name for students without a profile.
func WithFallbackName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.fallbackName = name
		}
	}
}

// WithMaxLimit caps the number of rows a ranking request may ask for.
func WithMaxLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithMaxScore sets the highest quiz score an event may carry.
func WithMaxScore(score float64) Option {
	return func(s *Service) {
		if score > 0 {
			s.maxScore = score
		}
	}
}
