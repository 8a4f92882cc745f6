package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/remote"
	"github.com/abatilo/clockwork/internal/task"
)

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type TaskHandler struct {
	store  remote.Store
	logger *slog.Logger
}

func NewTaskHandler(store remote.Store, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{store: store, logger: logger}
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.QueryByUser(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.internal(w, r, "query", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Upsert rejects invalid records individually; the valid rest of the batch
// is still written.
func (h *TaskHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req remote.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Tasks) > remote.MaxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "batch too large")
		return
	}

	rejected := map[string]string{}
	valid := make([]*task.Task, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		if t == nil || t.ID == "" {
			continue
		}
		if err := t.Validate(); err != nil {
			rejected[t.ID] = err.Error()
			continue
		}
		t.Normalize()
		valid = append(valid, t)
	}

	res, err := h.store.Upsert(r.Context(), userFrom(r.Context()), valid)
	if err != nil {
		h.internal(w, r, "upsert", err)
		return
	}
	if res.Failed == nil {
		res.Failed = map[string]string{}
	}
	if res.Succeeded == nil {
		res.Succeeded = []string{}
	}
	for id, reason := range rejected {
		res.Failed[id] = reason
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.DeleteByUser(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.internal(w, r, "delete all", err)
		return
	}
	writeJSON(w, http.StatusOK, remote.DeleteResponse{Deleted: n})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.Delete(r.Context(), userFrom(r.Context()), id)
	var nf cwerrors.TaskNotFoundError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case err != nil:
		h.internal(w, r, "delete", err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *TaskHandler) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("store error", "op", op, "request_id", requestIDFrom(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorResponse{Error: msg})
}
