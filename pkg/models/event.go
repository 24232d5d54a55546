package models

type ColorHint string

const (
	ColorHintShort  ColorHint = "short"
	ColorHintMedium ColorHint = "medium"
	ColorHintLong   ColorHint = "long"
)

// CalendarEvent is the shape handed to a calendar renderer.
type CalendarEvent struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	ColorHint     ColorHint `json:"colorHint"`
	Color         string    `json:"color"`
	Duration      float64   `json:"duration"`
	Notes         string    `json:"notes,omitempty"`
	PreferredDate *string   `json:"preferredDate,omitempty"`
	TaskType      string    `json:"taskType,omitempty"`
	AssignedTo    *string   `json:"assignedTo,omitempty"`
}

type Stats struct {
	TotalTasks     int     `json:"totalTasks"`
	ScheduledTasks int     `json:"scheduledTasks"`
	TotalHours     float64 `json:"totalHours"`
	WeekTasks      int     `json:"weekTasks"`
}
