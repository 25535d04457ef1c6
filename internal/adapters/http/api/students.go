package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/orsheep/internal/domain/model"
	"github.com/okian/orsheep/pkg/logger"
)

// StudentDependencies maintains the display-name directory.
type StudentDependencies interface {
	UpsertStudent(ctx context.Context, s model.Student) error
}

// StudentsHandler handles PUT /students/{studentID}.
type StudentsHandler struct {
	deps   StudentDependencies
	logger logger.Logger
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps StudentDependencies, l logger.Logger) *StudentsHandler {
	return &StudentsHandler{deps: deps, logger: l}
}

type studentRequest struct {
	Name string `json:"name"`
}

// HandlePutStudent stores or renames a student.
func (h *StudentsHandler) HandlePutStudent(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_student"
	ctx := r.Context()

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w: missing name", op, ErrBadRequest))
		return
	}

	student := model.Student{ID: chi.URLParam(r, "studentID"), Name: name}
	if err := h.deps.UpsertStudent(ctx, student); err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
