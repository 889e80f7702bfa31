package handlers

import (
	"net/http"
	"strconv"
	"time"

	"taskflow/models"
)

// TaskHandler translates the REST surface onto the task repository. No
// business logic lives here beyond what the repository already enforces.
type TaskHandler struct {
	Tasks TaskRepository
}

func taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Task not found")
		return 0, false
	}
	return id, true
}

// List handles GET /tasks?status&priority&search.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.TaskFilters{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
	}

	tasks, err := h.Tasks.List(r.Context(), UserID(r), filters)
	if err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.Tasks.Get(r.Context(), UserID(r), id)
	if err != nil {
		respondTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NewTask
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.Tasks.Create(r.Context(), UserID(r), req)
	if err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Task created successfully",
		"task":    task,
	})
}

// Update handles PUT /tasks/{id} with partial-update semantics.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req models.TaskPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.Tasks.Update(r.Context(), UserID(r), id, req)
	if err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// Delete handles DELETE /tasks/{id}. Hard delete, no tombstone.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(r.Context(), UserID(r), id); err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Task deleted successfully",
	})
}

// Toggle handles PATCH /tasks/{id}/toggle, flipping Pending<->Completed.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.Tasks.Toggle(r.Context(), UserID(r), id)
	if err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Task marked as " + task.Status,
		"task":    task,
	})
}

// Health handles GET /health, unauthenticated.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
