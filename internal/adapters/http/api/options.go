package api

import (
	"github.com/okian/orsheep/internal/domain/ranking"
	"github.com/okian/orsheep/pkg/logger"
)

const (
	defaultWidgetLimit = 10
	defaultMaxLimit    = 100
)

// Option configures a Server.
type Option func(*Server)

// WithWidgetLimit sets the row count served when a ranking request has no
// limit parameter.
func WithWidgetLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.widgetLimit = n
		}
	}
}

// WithMaxLimit sets the largest limit a ranking request may ask for.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithDefaultPolicy sets the policy used when a request names none.
func WithDefaultPolicy(p ranking.Policy) Option {
	return func(s *Server) {
		s.defaultPolicy = p
	}
}

// WithAllowedOrigins sets the browser origins allowed by CORS.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = append([]string(nil), origins...)
	}
}

// WithLogger sets the logger handlers report unexpected errors to.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
