package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/orsheep/internal/domain/ranking"
	"github.com/okian/orsheep/internal/domain/types"
	"github.com/okian/orsheep/pkg/logger"
)

// RankingDependencies computes the weekly board.
type RankingDependencies interface {
	WeeklyRanking(ctx context.Context, limit int, policy ranking.Policy) (types.Leaderboard, error)
}

// RankingHandler handles GET /ranking.
type RankingHandler struct {
	deps          RankingDependencies
	logger        logger.Logger
	widgetLimit   int
	maxLimit      int
	defaultPolicy ranking.Policy
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, l logger.Logger, widgetLimit, maxLimit int, policy ranking.Policy) *RankingHandler {
	return &RankingHandler{
		deps:          deps,
		logger:        l,
		widgetLimit:   widgetLimit,
		maxLimit:      maxLimit,
		defaultPolicy: policy,
	}
}

// HandleGetRanking handles GET /ranking?limit=N&policy=average|points.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	ctx := r.Context()

	limit, err := h.limit(r)
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}
	policy, err := parsePolicy(r, h.defaultPolicy)
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}

	board, err := h.deps.WeeklyRanking(ctx, limit, policy)
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *RankingHandler) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.widgetLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > h.maxLimit {
		return 0, fmt.Errorf("%w: limit must not exceed %d", ErrLimitExceeded, h.maxLimit)
	}
	return n, nil
}
