package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/orsheep/internal/domain/ranking"
	"github.com/okian/orsheep/pkg/logger"
)

// RankDependencies looks up one student's row.
type RankDependencies interface {
	StudentRank(ctx context.Context, studentID string, policy ranking.Policy) (Entry, error)
}

// RankHandler handles GET /ranking/{studentID}.
type RankHandler struct {
	deps          RankDependencies
	logger        logger.Logger
	defaultPolicy ranking.Policy
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, l logger.Logger, policy ranking.Policy) *RankHandler {
	return &RankHandler{deps: deps, logger: l, defaultPolicy: policy}
}

// HandleGetRank returns the student's entry or 404 when they are off the board.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	ctx := r.Context()

	policy, err := parsePolicy(r, h.defaultPolicy)
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}
	entry, err := h.deps.StudentRank(ctx, chi.URLParam(r, "studentID"), policy)
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
