package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority values a task may carry.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Status values a task may carry.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// DueDateLayout is the only accepted due date format.
const DueDateLayout = "2006-01-02"

type Task struct {
	ID          int       `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	Priority    string    `json:"priority" db:"priority"`
	Status      string    `json:"status" db:"status"`
	DueDate     string    `json:"due_date" db:"due_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewTask carries the fields accepted on task creation. Status is not
// accepted: new tasks always start Pending.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
}

// Empty reports whether the patch carries no recognized field.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && p.Status == nil
}

// TaskFilters narrows a task listing. Zero values mean "no filter".
type TaskFilters struct {
	Status   string
	Priority string
	Search   string
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted
}
