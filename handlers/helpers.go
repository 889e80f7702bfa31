package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"taskflow/models"
	"taskflow/utils"
)

// TaskRepository is the task storage contract the handlers translate HTTP
// requests into. Every call is scoped by the authenticated user's id.
type TaskRepository interface {
	List(ctx context.Context, userID uuid.UUID, f models.TaskFilters) ([]models.Task, error)
	Get(ctx context.Context, userID uuid.UUID, id int) (models.Task, error)
	Create(ctx context.Context, userID uuid.UUID, t models.NewTask) (models.Task, error)
	Update(ctx context.Context, userID uuid.UUID, id int, p models.TaskPatch) (models.Task, error)
	Delete(ctx context.Context, userID uuid.UUID, id int) error
	Toggle(ctx context.Context, userID uuid.UUID, id int) (models.Task, error)
}

// UserRepository is the credential storage contract for the auth handlers.
type UserRepository interface {
	EmailInUse(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, email, name, passwordHash string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Limiter throttles credential endpoints. A nil Limiter disables throttling.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	Reset(ctx context.Context, key string)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondTaskError maps repository failures onto the HTTP contract: 400 for
// rejected input, 404 for absent-or-not-owned, 500 for everything else with
// the cause logged but never exposed.
func respondTaskError(w http.ResponseWriter, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, utils.ErrNoFields):
		writeError(w, http.StatusBadRequest, "No fields to update")
	case errors.Is(err, utils.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	default:
		log.Println("task handler error:", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
