package client

import (
	"context"
	"strings"

	"taskflow/models"
)

// FilterAll matches every task; it is the default for both select filters.
const FilterAll = "All"

// Store holds the client's copy of the task collection plus the three
// independent filter criteria, and recomputes derived views on demand. It
// follows the UI event-loop model: not safe for concurrent use.
//
// Every mutation applies its intended effect locally first, then asks the
// server and refetches the full collection; the most recent full list is
// ground truth. A failed mutation restores the snapshot taken before the
// optimistic change and sets a dismissable error banner.
type Store struct {
	api *Client

	tasks   []models.Task
	loading bool
	errMsg  string

	statusFilter   string
	priorityFilter string
	search         string

	// Client-local kanban ordering per column; never persisted server-side.
	columnOrder map[string][]int

	read    map[string]bool
	cleared map[string]bool
}

func NewStore(api *Client) *Store {
	return &Store{
		api:            api,
		statusFilter:   FilterAll,
		priorityFilter: FilterAll,
		columnOrder:    map[string][]int{},
		read:           map[string]bool{},
		cleared:        map[string]bool{},
	}
}

// Tasks returns the full collection as last fetched.
func (s *Store) Tasks() []models.Task { return s.tasks }

// Loading reports whether a fetch is outstanding.
func (s *Store) Loading() bool { return s.loading }

// Err returns the current error banner, empty when none.
func (s *Store) Err() string { return s.errMsg }

// DismissError clears the error banner.
func (s *Store) DismissError() { s.errMsg = "" }

func (s *Store) StatusFilter() string   { return s.statusFilter }
func (s *Store) PriorityFilter() string { return s.priorityFilter }
func (s *Store) Search() string         { return s.search }

func (s *Store) SetStatusFilter(status string)     { s.statusFilter = status }
func (s *Store) SetPriorityFilter(priority string) { s.priorityFilter = priority }
func (s *Store) SetSearch(term string)             { s.search = term }

// Refresh replaces the collection with the server's full list.
func (s *Store) Refresh(ctx context.Context) error {
	s.loading = true
	defer func() { s.loading = false }()

	tasks, err := s.api.ListTasks(ctx, models.TaskFilters{})
	if err != nil {
		s.errMsg = errorMessage(err, "Failed to fetch tasks")
		return err
	}
	s.tasks = tasks
	return nil
}

// Visible derives the filtered view: exact-match-or-All on status and
// priority, case-insensitive substring search over title or description.
// Evaluated locally so typing never waits on the network.
func (s *Store) Visible() []models.Task {
	term := strings.ToLower(strings.TrimSpace(s.search))

	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if s.statusFilter != FilterAll && t.Status != s.statusFilter {
			continue
		}
		if s.priorityFilter != FilterAll && t.Priority != s.priorityFilter {
			continue
		}
		if term != "" && !matchesSearch(t, term) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t models.Task, lowerTerm string) bool {
	if strings.Contains(strings.ToLower(t.Title), lowerTerm) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), lowerTerm)
}

// Column returns the tasks of one kanban column with the client-local
// ordering applied: reordered ids first, then the rest in server order.
func (s *Store) Column(status string) []models.Task {
	byID := map[int]models.Task{}
	var serverOrder []int
	for _, t := range s.tasks {
		if t.Status == status {
			byID[t.ID] = t
			serverOrder = append(serverOrder, t.ID)
		}
	}

	seen := map[int]bool{}
	out := make([]models.Task, 0, len(serverOrder))
	for _, id := range s.columnOrder[status] {
		if t, ok := byID[id]; ok && !seen[id] {
			out = append(out, t)
			seen[id] = true
		}
	}
	for _, id := range serverOrder {
		if !seen[id] {
			out = append(out, byID[id])
		}
	}
	return out
}

// Reorder moves the dragged task to the dropped-on task's position within
// its column. Client-local only; the order is lost on reload.
func (s *Store) Reorder(taskID, overID int) {
	if taskID == overID {
		return
	}
	task, ok := s.find(taskID)
	if !ok {
		return
	}
	over, ok := s.find(overID)
	if !ok || over.Status != task.Status {
		return
	}

	column := s.Column(task.Status)
	ids := make([]int, len(column))
	oldIndex, newIndex := -1, -1
	for i, t := range column {
		ids[i] = t.ID
		if t.ID == taskID {
			oldIndex = i
		}
		if t.ID == overID {
			newIndex = i
		}
	}
	if oldIndex < 0 || newIndex < 0 || oldIndex == newIndex {
		return
	}
	s.columnOrder[task.Status] = arrayMove(ids, oldIndex, newIndex)
}

func arrayMove(ids []int, from, to int) []int {
	out := make([]int, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	out = append(out[:to], append([]int{ids[from]}, out[to:]...)...)
	return out
}

func (s *Store) find(id int) (models.Task, bool) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// snapshot and restore bracket every optimistic mutation.
func (s *Store) snapshot() []models.Task {
	return append([]models.Task(nil), s.tasks...)
}

func (s *Store) restore(prev []models.Task) {
	s.tasks = prev
}

// Create submits a new task and refetches. There is nothing to show
// optimistically before the server assigns an id.
func (s *Store) Create(ctx context.Context, t models.NewTask) error {
	if _, err := s.api.CreateTask(ctx, t); err != nil {
		s.errMsg = errorMessage(err, "Failed to create task")
		return err
	}
	return s.Refresh(ctx)
}

// Update optimistically applies the patch, submits it, then refetches.
func (s *Store) Update(ctx context.Context, id int, p models.TaskPatch) error {
	prev := s.snapshot()
	s.applyPatch(id, p)

	if _, err := s.api.UpdateTask(ctx, id, p); err != nil {
		s.restore(prev)
		s.errMsg = errorMessage(err, "Failed to update task")
		return err
	}
	return s.Refresh(ctx)
}

// Delete optimistically removes the task, submits, then refetches.
func (s *Store) Delete(ctx context.Context, id int) error {
	prev := s.snapshot()
	kept := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept

	if err := s.api.DeleteTask(ctx, id); err != nil {
		s.restore(prev)
		s.errMsg = errorMessage(err, "Failed to delete task")
		return err
	}
	return s.Refresh(ctx)
}

// Toggle optimistically flips the status, submits, then refetches.
func (s *Store) Toggle(ctx context.Context, id int) error {
	prev := s.snapshot()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			if s.tasks[i].Status == models.StatusPending {
				s.tasks[i].Status = models.StatusCompleted
			} else {
				s.tasks[i].Status = models.StatusPending
			}
		}
	}

	if _, err := s.api.ToggleTask(ctx, id); err != nil {
		s.restore(prev)
		s.errMsg = errorMessage(err, "Failed to toggle task status")
		return err
	}
	return s.Refresh(ctx)
}

// ChangeStatus moves a task to the given status. A Pending<->Completed flip
// delegates to Toggle; any other target becomes a direct field update.
func (s *Store) ChangeStatus(ctx context.Context, id int, status string) error {
	task, ok := s.find(id)
	if !ok || task.Status == status {
		return nil
	}
	if (task.Status == models.StatusPending && status == models.StatusCompleted) ||
		(task.Status == models.StatusCompleted && status == models.StatusPending) {
		return s.Toggle(ctx, id)
	}
	return s.Update(ctx, id, models.TaskPatch{Status: &status})
}

func (s *Store) applyPatch(id int, p models.TaskPatch) {
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if p.Title != nil {
			s.tasks[i].Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			if trimmed := strings.TrimSpace(*p.Description); trimmed != "" {
				s.tasks[i].Description = &trimmed
			} else {
				s.tasks[i].Description = nil
			}
		}
		if p.Priority != nil {
			s.tasks[i].Priority = *p.Priority
		}
		if p.DueDate != nil {
			s.tasks[i].DueDate = *p.DueDate
		}
		if p.Status != nil {
			s.tasks[i].Status = *p.Status
		}
	}
}

func errorMessage(err error, fallback string) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
