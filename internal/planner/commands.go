package planner

import (
	"time"

	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Command is one of the mutations the planner accepts.
type Command interface {
	commandName() string
}

type CreateTask struct {
	Input TaskInput
}

// UpdateTask replaces the editable fields of a task. The task is
// rescheduled only if it was already scheduled. When Patch is set, Input is
// ignored: Patch edits the task's current fields under the command lock.
type UpdateTask struct {
	ID    string
	Input TaskInput
	Patch func(in *TaskInput) error
}

type DeleteTask struct {
	ID string
}

// ImportBatch creates one task per usable row, scheduling rows in order so
// earlier rows get first pick of the slots.
type ImportBatch struct {
	Rows []map[string]any
}

// DragReschedule places a task at a manually chosen instant, without an
// availability check.
type DragReschedule struct {
	ID    string
	Start time.Time
}

// ResizeDuration sets a task's duration from its start to End, rounded to
// the nearest half hour.
type ResizeDuration struct {
	ID  string
	End time.Time
}

// AssignTask sets the assignee. An empty Member picks one automatically by
// workload; Clear removes the assignment.
type AssignTask struct {
	ID     string
	Member string
	Clear  bool
}

func (CreateTask) commandName() string     { return "create_task" }
func (UpdateTask) commandName() string     { return "update_task" }
func (DeleteTask) commandName() string     { return "delete_task" }
func (ImportBatch) commandName() string    { return "import_batch" }
func (DragReschedule) commandName() string { return "drag_reschedule" }
func (ResizeDuration) commandName() string { return "resize_duration" }
func (AssignTask) commandName() string     { return "assign_task" }

// Result reports what a command did. SaveErr is set when the in-memory
// change succeeded but could not be persisted; the change is kept.
type Result struct {
	Task     *models.Task       `json:"task,omitempty"`
	Slot     *models.Slot       `json:"slot,omitempty"`
	Imported []models.Task      `json:"imported,omitempty"`
	Skipped  []importer.Skipped `json:"skipped,omitempty"`
	Notices  []string           `json:"notices,omitempty"`
	SaveErr  error              `json:"-"`
}

func (r *Result) notice(msg string) {
	r.Notices = append(r.Notices, msg)
}
