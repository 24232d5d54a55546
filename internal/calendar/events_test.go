package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

func TestHint(t *testing.T) {
	cases := []struct {
		hours float64
		want  models.ColorHint
	}{
		{0.5, models.ColorHintShort},
		{1.5, models.ColorHintShort},
		{2, models.ColorHintMedium},
		{4, models.ColorHintMedium},
		{4.5, models.ColorHintLong},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Hint(tc.hours), "hours=%v", tc.hours)
	}
	assert.Equal(t, ColorMedium, Color(models.ColorHintMedium))
}

func TestEvents(t *testing.T) {
	late := models.Task{ID: "late", Name: "Late shift", Duration: 3, Notes: "n", TaskType: "review",
		AssignedTo: models.StringPtr("Alice")}
	late.SetSlot(models.Slot{Date: "2025-11-03", Time: "22:00:00"})
	pending := models.Task{ID: "pending", Name: "Not placed", Duration: 1}

	events := Events([]models.Task{pending, late})
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "late", ev.ID)
	assert.Equal(t, "Late shift", ev.Title)
	assert.Equal(t, "2025-11-03T22:00:00", ev.Start)
	assert.Equal(t, "2025-11-04T01:00:00", ev.End)
	assert.Equal(t, models.ColorHintMedium, ev.ColorHint)
	assert.Equal(t, ColorMedium, ev.Color)
	assert.Equal(t, "Alice", models.StringValue(ev.AssignedTo))
	assert.Equal(t, "review", ev.TaskType)
}

func TestParseInstant(t *testing.T) {
	want := time.Date(2025, 11, 3, 13, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2025-11-03T13:30:00",
		"2025-11-03T13:30",
		"2025-11-03 13:30",
		"2025-11-03T13:30:00+02:00",
		"2025-11-03T13:30:00Z",
	} {
		got, err := ParseInstant(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s -> %s", s, got)
	}

	_, err := ParseInstant("tomorrow")
	assert.Error(t, err)
}
