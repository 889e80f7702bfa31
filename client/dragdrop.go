package client

import (
	"context"
	"errors"

	"taskflow/models"
)

// DragState is the phase of the single in-progress drag gesture.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
)

var ErrUnknownTask = errors.New("unknown task")

// DragDrop reconciles a drag gesture into either a cross-column status
// change or an in-column reorder. At most one gesture is in flight:
// Idle -> Dragging(taskID, originColumn) -> Idle. Cancellation and drops
// outside any valid target are always safe no-ops.
type DragDrop struct {
	store  *Store
	state  DragState
	taskID int
	origin string
}

func NewDragDrop(store *Store) *DragDrop {
	return &DragDrop{store: store}
}

func (d *DragDrop) State() DragState { return d.state }

// ActiveTask returns the dragged task id and origin column while dragging.
func (d *DragDrop) ActiveTask() (int, string) { return d.taskID, d.origin }

// Begin starts a gesture for an existing task.
func (d *DragDrop) Begin(taskID int) error {
	task, ok := d.store.find(taskID)
	if !ok {
		return ErrUnknownTask
	}
	d.state = DragActive
	d.taskID = taskID
	d.origin = task.Status
	return nil
}

// Cancel abandons the gesture without side effects.
func (d *DragDrop) Cancel() {
	d.reset()
}

// DropOnColumn ends the gesture on a column-level container. A column
// differing from the task's current status becomes a status change; the
// same column is a no-op.
func (d *DragDrop) DropOnColumn(ctx context.Context, column string) error {
	if d.state != DragActive {
		return nil
	}
	taskID := d.taskID
	d.reset()

	task, ok := d.store.find(taskID)
	if !ok || task.Status == column {
		return nil
	}
	if !models.ValidStatus(column) {
		return nil
	}
	return d.store.ChangeStatus(ctx, taskID, column)
}

// DropOnTask ends the gesture on another task card. Within the same column
// this is a client-local reorder; dropping on oneself or across columns is
// a no-op.
func (d *DragDrop) DropOnTask(targetID int) {
	if d.state != DragActive {
		return
	}
	taskID := d.taskID
	d.reset()

	if taskID == targetID {
		return
	}
	d.store.Reorder(taskID, targetID)
}

func (d *DragDrop) reset() {
	d.state = DragIdle
	d.taskID = 0
	d.origin = ""
}
