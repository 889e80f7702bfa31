package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskflow/models"
)

var (
	// ErrTaskNotFound covers both true absence and rows owned by another
	// user; callers cannot tell the two apart.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoFields is returned when a partial update carries nothing to change.
	ErrNoFields = errors.New("no fields to update")
)

// taskColumns keeps due_date on the wire as the literal YYYY-MM-DD string.
const taskColumns = `id, user_id, title, description, priority, status,
	to_char(due_date, 'YYYY-MM-DD'), created_at, updated_at`

// TaskStore executes every task statement scoped by the owning user's id.
type TaskStore struct {
	db *pgxpool.Pool
}

func NewTaskStore(db *pgxpool.Pool) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority,
		&t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return t, nil
}

// buildListQuery assembles the filtered listing statement. Filter values
// outside their enums are ignored rather than rejected; a blank search term
// is ignored. Values only ever travel as positional parameters.
func buildListQuery(userID uuid.UUID, f models.TaskFilters) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + taskColumns + " FROM tasks WHERE user_id = $1")
	args := []any{userID}

	if models.ValidStatus(f.Status) {
		args = append(args, f.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if models.ValidPriority(f.Priority) {
		args = append(args, f.Priority)
		fmt.Fprintf(&sb, " AND priority = $%d", len(args))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		fmt.Fprintf(&sb, " AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	sb.WriteString(" ORDER BY created_at DESC")
	return sb.String(), args
}

// buildUpdateSet assembles the variable-width SET list for a partial update.
// The returned argument slice starts at $1; the WHERE clause parameters are
// appended by the caller.
func buildUpdateSet(p models.TaskPatch) (string, []any, error) {
	var updates []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		updates = append(updates, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		add("title", strings.TrimSpace(*p.Title))
	}
	if p.Description != nil {
		// Empty descriptions are stored as NULL, matching creation.
		if trimmed := strings.TrimSpace(*p.Description); trimmed != "" {
			add("description", trimmed)
		} else {
			add("description", nil)
		}
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.DueDate != nil {
		add("due_date", *p.DueDate)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}

	if len(updates) == 0 {
		return "", nil, ErrNoFields
	}

	updates = append(updates, "updated_at = NOW()")
	return strings.Join(updates, ", "), args, nil
}

// List returns the caller's tasks matching the filters, newest first.
func (s *TaskStore) List(ctx context.Context, userID uuid.UUID, f models.TaskFilters) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmt, args := buildListQuery(userID, f)
	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading task rows: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) Get(ctx context.Context, userID uuid.UUID, id int) (models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmt := "SELECT " + taskColumns + " FROM tasks WHERE id = $1 AND user_id = $2"
	return scanTask(s.db.QueryRow(ctx, stmt, id, userID))
}

// Create validates every field, then inserts with status forced to Pending
// and returns the persisted row including generated id and timestamps.
func (s *TaskStore) Create(ctx context.Context, userID uuid.UUID, t models.NewTask) (models.Task, error) {
	if err := ValidateNewTask(t); err != nil {
		return models.Task{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var description any
	if trimmed := strings.TrimSpace(t.Description); trimmed != "" {
		description = trimmed
	}

	stmt := `INSERT INTO tasks (user_id, title, description, priority, due_date, status)
		VALUES ($1, $2, $3, $4, $5, 'Pending')
		RETURNING ` + taskColumns

	return scanTask(s.db.QueryRow(ctx, stmt, userID, strings.TrimSpace(t.Title), description, t.Priority, t.DueDate))
}

// Update applies a partial update: only supplied fields are validated and
// changed, and every supplied field is validated before anything is written.
func (s *TaskStore) Update(ctx context.Context, userID uuid.UUID, id int, p models.TaskPatch) (models.Task, error) {
	if err := ValidateTaskPatch(p); err != nil {
		return models.Task{}, err
	}

	set, args, err := buildUpdateSet(p)
	if err != nil {
		return models.Task{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	args = append(args, id, userID)
	stmt := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		set, len(args)-1, len(args), taskColumns)

	return scanTask(s.db.QueryRow(ctx, stmt, args...))
}

func (s *TaskStore) Delete(ctx context.Context, userID uuid.UUID, id int) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := s.db.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Toggle flips Pending<->Completed in a single statement, so two concurrent
// toggles cannot read the same starting status.
func (s *TaskStore) Toggle(ctx context.Context, userID uuid.UUID, id int) (models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmt := `UPDATE tasks
		SET status = CASE WHEN status = 'Pending' THEN 'Completed' ELSE 'Pending' END,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	return scanTask(s.db.QueryRow(ctx, stmt, id, userID))
}
