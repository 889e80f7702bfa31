package client

import (
	"fmt"
	"time"

	"taskflow/models"
)

// Notification types synthesized from the task collection.
const (
	NotificationTaskCreated   = "task_created"
	NotificationTaskDue       = "task_due"
	NotificationTaskCompleted = "task_completed"
)

// recencyWindow bounds how long created/completed entries stay visible.
const recencyWindow = time.Hour

// Notification is a transient client-side entry; nothing here is persisted
// or sent to the server.
type Notification struct {
	ID        string
	Type      string
	Title     string
	Message   string
	TaskID    int
	CreatedAt time.Time
	Read      bool
}

// Notifications derives the current entries from the in-memory collection:
// recently created tasks, tasks overdue at now, and recently completed
// tasks. Read and cleared state survives recomputation.
func (s *Store) Notifications(now time.Time) []Notification {
	var out []Notification

	add := func(n Notification) {
		if s.cleared[n.ID] {
			return
		}
		n.Read = s.read[n.ID]
		out = append(out, n)
	}

	today := now.Truncate(24 * time.Hour)
	for _, t := range s.tasks {
		if now.Sub(t.CreatedAt) < recencyWindow {
			add(Notification{
				ID:        notificationID(NotificationTaskCreated, t.ID),
				Type:      NotificationTaskCreated,
				Title:     "Task created",
				Message:   t.Title,
				TaskID:    t.ID,
				CreatedAt: t.CreatedAt,
			})
		}

		if t.Status == models.StatusPending {
			if due, err := time.Parse(models.DueDateLayout, t.DueDate); err == nil && due.Before(today) {
				add(Notification{
					ID:        notificationID(NotificationTaskDue, t.ID),
					Type:      NotificationTaskDue,
					Title:     "Task overdue",
					Message:   t.Title + " was due " + t.DueDate,
					TaskID:    t.ID,
					CreatedAt: now,
				})
			}
		}

		if t.Status == models.StatusCompleted && now.Sub(t.UpdatedAt) < recencyWindow {
			add(Notification{
				ID:        notificationID(NotificationTaskCompleted, t.ID),
				Type:      NotificationTaskCompleted,
				Title:     "Task completed",
				Message:   t.Title,
				TaskID:    t.ID,
				CreatedAt: t.UpdatedAt,
			})
		}
	}
	return out
}

// UnreadCount returns how many current notifications are unread.
func (s *Store) UnreadCount(now time.Time) int {
	count := 0
	for _, n := range s.Notifications(now) {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkNotificationRead flags one entry as read.
func (s *Store) MarkNotificationRead(id string) {
	s.read[id] = true
}

// ClearNotifications dismisses every current entry.
func (s *Store) ClearNotifications(now time.Time) {
	for _, n := range s.Notifications(now) {
		s.cleared[n.ID] = true
	}
}

func notificationID(kind string, taskID int) string {
	return fmt.Sprintf("%s:%d", kind, taskID)
}
