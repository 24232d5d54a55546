package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

type Task struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Duration      float64   `json:"duration" yaml:"duration"`
	PreferredDate *string   `json:"preferredDate" yaml:"preferredDate"`
	Notes         string    `json:"notes" yaml:"notes"`
	TaskType      string    `json:"taskType,omitempty" yaml:"taskType,omitempty"`
	ScheduledDate *string   `json:"scheduledDate" yaml:"scheduledDate"`
	ScheduledTime *string   `json:"scheduledTime" yaml:"scheduledTime"`
	AssignedTo    *string   `json:"assignedTo" yaml:"assignedTo"`
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
}

// Slot is a candidate placement: a calendar date and a start time of day.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`

	// Fallback is set when the slot finder ran out of lookahead and the
	// slot was produced without an availability check.
	Fallback bool `json:"fallback,omitempty"`
}

// IsScheduled reports whether both halves of the scheduled slot are set.
func (t *Task) IsScheduled() bool {
	return t.ScheduledDate != nil && t.ScheduledTime != nil
}

// SetSlot places the task. Date and time are always written together.
func (t *Task) SetSlot(s Slot) {
	date, clock := s.Date, s.Time
	t.ScheduledDate = &date
	t.ScheduledTime = &clock
}

// Clone returns a copy that shares no string pointers with t.
func (t Task) Clone() Task {
	t.PreferredDate = clonePtr(t.PreferredDate)
	t.ScheduledDate = clonePtr(t.ScheduledDate)
	t.ScheduledTime = clonePtr(t.ScheduledTime)
	t.AssignedTo = clonePtr(t.AssignedTo)
	return t
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (t *Task) ClearSlot() {
	t.ScheduledDate = nil
	t.ScheduledTime = nil
}

// Start returns the scheduled start instant. Dates and times carry no zone;
// they are interpreted as UTC wall-clock values.
func (t *Task) Start() (time.Time, bool) {
	if !t.IsScheduled() {
		return time.Time{}, false
	}
	start, err := time.Parse(DateLayout+"T"+TimeLayout, *t.ScheduledDate+"T"+*t.ScheduledTime)
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}

// End returns Start plus the task duration.
func (t *Task) End() (time.Time, bool) {
	start, ok := t.Start()
	if !ok {
		return time.Time{}, false
	}
	return start.Add(HoursToDuration(t.Duration)), true
}

func (t *Task) Assignee() string {
	if t.AssignedTo == nil {
		return ""
	}
	return *t.AssignedTo
}

func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
