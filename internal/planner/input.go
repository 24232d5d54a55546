package planner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/internal/scheduler"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrValidation   = errors.New("validation failed")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TaskInput is the editable part of a task as it arrives from a form, a tool
// call or an import row.
type TaskInput struct {
	Name          string  `json:"name"`
	Duration      float64 `json:"duration"`
	PreferredDate *string `json:"preferredDate,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	TaskType      string  `json:"taskType,omitempty"`
	AssignedTo    *string `json:"assignedTo,omitempty"`
}

// Validate checks the input and normalizes it in place: names are trimmed,
// durations rounded to the nearest half hour, blank optionals cleared.
func (in *TaskInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("name", "must not be empty")
	}
	if in.Duration <= 0 {
		return invalid("duration", "must be positive, got %v", in.Duration)
	}
	in.Duration = scheduler.RoundHalfHour(in.Duration)

	if in.PreferredDate != nil {
		d := strings.TrimSpace(*in.PreferredDate)
		if d == "" {
			in.PreferredDate = nil
		} else {
			if _, err := time.Parse(models.DateLayout, d); err != nil {
				return invalid("preferredDate", "%q is not YYYY-MM-DD", d)
			}
			in.PreferredDate = &d
		}
	}

	in.Notes = strings.TrimSpace(in.Notes)
	in.TaskType = strings.TrimSpace(in.TaskType)
	if in.AssignedTo != nil && strings.TrimSpace(*in.AssignedTo) == "" {
		in.AssignedTo = nil
	}
	return nil
}

// InputFromTask returns the editable fields of t, for callers that apply a
// partial edit on top of the current values.
func InputFromTask(t models.Task) TaskInput {
	t = t.Clone()
	return TaskInput{
		Name:          t.Name,
		Duration:      t.Duration,
		PreferredDate: t.PreferredDate,
		Notes:         t.Notes,
		TaskType:      t.TaskType,
		AssignedTo:    t.AssignedTo,
	}
}

func inputFromRow(r importer.Row) TaskInput {
	return TaskInput{
		Name:          r.Name,
		Duration:      r.Duration,
		PreferredDate: r.PreferredDate,
		Notes:         r.Notes,
		TaskType:      r.TaskType,
	}
}
