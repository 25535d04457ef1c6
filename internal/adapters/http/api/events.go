package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/orsheep/internal/domain/model"
	"github.com/okian/orsheep/pkg/logger"
)

// EventDependencies accepts lesson progress.
type EventDependencies interface {
	// Record queues e; duplicate reports an already accepted event id.
	Record(ctx context.Context, e model.ProgressEvent) (duplicate bool, err error)
}

// EventsHandler handles POST /events.
type EventsHandler struct {
	deps   EventDependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, l logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: l}
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	EventID   string   `json:"event_id"`
	StudentID string   `json:"student_id"`
	LessonID  string   `json:"lesson_id"`
	Score     *float64 `json:"score"`
	Completed *bool    `json:"completed"`
	TS        string   `json:"ts"`
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// toEvent validates the request and builds the event. A missing event_id is
// replaced by a random one; a missing completed flag means completed.
func (e eventRequest) toEvent() (model.ProgressEvent, error) {
	switch {
	case strings.TrimSpace(e.StudentID) == "":
		return model.ProgressEvent{}, fmt.Errorf("%w: missing student_id", ErrBadRequest)
	case strings.TrimSpace(e.LessonID) == "":
		return model.ProgressEvent{}, fmt.Errorf("%w: missing lesson_id", ErrBadRequest)
	case strings.TrimSpace(e.TS) == "":
		return model.ProgressEvent{}, fmt.Errorf("%w: missing ts", ErrBadRequest)
	}
	ts, err := time.Parse(time.RFC3339, e.TS)
	if err != nil {
		return model.ProgressEvent{}, fmt.Errorf("%w: invalid ts; must be RFC3339", ErrBadRequest)
	}

	id := strings.TrimSpace(e.EventID)
	if id == "" {
		id = uuid.NewString()
	}
	completed := true
	if e.Completed != nil {
		completed = *e.Completed
	}
	return model.ProgressEvent{
		EventID:   id,
		StudentID: e.StudentID,
		LessonID:  e.LessonID,
		Score:     e.Score,
		Completed: completed,
		TS:        ts.UTC(),
	}, nil
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	ctx := r.Context()

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	event, err := req.toEvent()
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}

	duplicate, err := h.deps.Record(ctx, event)
	if err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%s: %w", op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: event.EventID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: event.EventID})
}
