// Package api exposes the ranking service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/orsheep/internal/adapters/http/swagger"
	"github.com/okian/orsheep/internal/domain/ranking"
	"github.com/okian/orsheep/internal/domain/types"
	"github.com/okian/orsheep/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	EventDependencies
	StudentDependencies
	RankingDependencies
	RankDependencies
	StatsProvider
}

// Entry mirrors one leaderboard row.
type Entry = types.Entry

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	studentsHandler *StudentsHandler
	rankingHandler  *RankingHandler
	rankHandler     *RankHandler

	widgetLimit    int
	maxLimit       int
	defaultPolicy  ranking.Policy
	allowedOrigins []string
	logger         logger.Logger
}

// NewServer creates an API server backed by deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		widgetLimit:   defaultWidgetLimit,
		maxLimit:      defaultMaxLimit,
		defaultPolicy: ranking.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.eventsHandler = NewEventsHandler(deps, s.logger)
	s.studentsHandler = NewStudentsHandler(deps, s.logger)
	s.rankingHandler = NewRankingHandler(deps, s.logger, s.widgetLimit, s.maxLimit, s.defaultPolicy)
	s.rankHandler = NewRankHandler(deps, s.logger, s.defaultPolicy)
	return s
}

// Routes builds the router serving every endpoint.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Post("/events", s.eventsHandler.HandlePostEvent)
	r.Put("/students/{studentID}", s.studentsHandler.HandlePutStudent)
	r.Route("/ranking", func(r chi.Router) {
		r.Get("/", s.rankingHandler.HandleGetRanking)
		r.Get("/{studentID}", s.rankHandler.HandleGetRank)
	})
	swagger.Register(ctx, r)

	s.logger.Debug(ctx, "routes registered")
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a JSON error body, logging server-side failures.
func writeError(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// parsePolicy reads the policy query parameter, falling back to def.
func parsePolicy(r *http.Request, def ranking.Policy) (ranking.Policy, error) {
	raw := r.URL.Query().Get("policy")
	if raw == "" {
		return def, nil
	}
	return ranking.ParsePolicy(raw)
}
