// Package calendar converts scheduled tasks into calendar events and parses
// the instants a calendar hands back after drag and resize gestures.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// EventLayout is how event start and end instants are rendered. Instants
// carry no zone.
const EventLayout = "2006-01-02T15:04:05"

const (
	ColorShort  = "#10b981"
	ColorMedium = "#3b82f6"
	ColorLong   = "#8b5cf6"
)

// Hint buckets a duration: under 2h is short, up to 4h medium, longer is long.
func Hint(hours float64) models.ColorHint {
	switch {
	case hours < 2:
		return models.ColorHintShort
	case hours <= 4:
		return models.ColorHintMedium
	default:
		return models.ColorHintLong
	}
}

func Color(h models.ColorHint) string {
	switch h {
	case models.ColorHintShort:
		return ColorShort
	case models.ColorHintMedium:
		return ColorMedium
	default:
		return ColorLong
	}
}

// Events returns one event per scheduled task, in the order given.
// Unscheduled tasks are left out.
func Events(tasks []models.Task) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0, len(tasks))
	for i := range tasks {
		ev, ok := Event(tasks[i])
		if ok {
			events = append(events, ev)
		}
	}
	return events
}

func Event(t models.Task) (models.CalendarEvent, bool) {
	start, ok := t.Start()
	if !ok {
		return models.CalendarEvent{}, false
	}
	end, _ := t.End()
	hint := Hint(t.Duration)

	return models.CalendarEvent{
		ID:            t.ID,
		Title:         t.Name,
		Start:         start.Format(EventLayout),
		End:           end.Format(EventLayout),
		ColorHint:     hint,
		Color:         Color(hint),
		Duration:      t.Duration,
		Notes:         t.Notes,
		PreferredDate: t.PreferredDate,
		TaskType:      t.TaskType,
		AssignedTo:    t.AssignedTo,
	}, true
}

var instantLayouts = []string{
	EventLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant reads a gesture instant. Zone-free forms are taken as wall
// clock; an RFC 3339 value keeps its wall clock and drops the offset.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid instant %q: want YYYY-MM-DDTHH:MM[:SS]", s)
}
