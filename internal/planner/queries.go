package planner

import (
	"time"

	"github.com/nick-dorsch/slotplan/internal/calendar"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Stats summarizes the task collection. WeekTasks counts tasks scheduled
// from today through seven days ahead, inclusive.
func (s *Service) Stats() models.Stats {
	today := s.sched.Today()
	weekEnd := today.AddDate(0, 0, 7)

	var st models.Stats
	for _, t := range s.store.Snapshot() {
		st.TotalTasks++
		st.TotalHours += t.Duration
		if t.ScheduledDate == nil {
			continue
		}
		st.ScheduledTasks++
		d, err := time.Parse(models.DateLayout, *t.ScheduledDate)
		if err == nil && !d.Before(today) && !d.After(weekEnd) {
			st.WeekTasks++
		}
	}
	return st
}

// Events returns the calendar events of scheduled tasks, ordered by start.
func (s *Service) Events() []models.CalendarEvent {
	return calendar.Events(s.store.Scheduled())
}

// FindSlot previews where a task with these settings would be placed now,
// without changing anything. ok is false when only the fallback slot was
// found.
func (s *Service) FindSlot(duration float64, preferredDate *string, excludeID string) (models.Slot, bool, error) {
	in := TaskInput{Name: "preview", Duration: duration, PreferredDate: preferredDate}
	if err := in.Validate(); err != nil {
		return models.Slot{}, false, err
	}
	probe := models.Task{ID: excludeID, Duration: in.Duration, PreferredDate: in.PreferredDate}
	start := s.sched.SearchStart(&probe)
	slot, ok := s.sched.FindAvailableSlot(s.store.Snapshot(), start, in.Duration, excludeID)
	return slot, ok, nil
}
