package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskmaster/internal/models"
	"taskmaster/internal/store"
)

// ListTasks returns the full task collection.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		respondServerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task from a JSON draft. Title and dueAt are
// required; the server assigns id and createdAt unless the caller
// supplies an id.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	if err := h.store.CreateTask(r.Context(), &task); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			msg := verr.Message
			if verr.Field == "title" || verr.Field == "dueAt" {
				msg = "Title and Due Date/Time are required."
			}
			respondError(w, http.StatusBadRequest, msg)
			return
		}
		respondServerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial patch to an existing task. A patch that
// would null out dueAt is rejected.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.store.UpdateTask(r.Context(), id, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Task not found")
		return
	case errors.Is(err, store.ErrDueDateRequired):
		respondError(w, http.StatusBadRequest, "Task must have a due date/time.")
		return
	case err != nil:
		respondServerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.store.DeleteTask(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Task not found")
		return
	case err != nil:
		respondServerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, errorBody{Message: "Task deleted"})
}
