package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// MinDuration is the smallest duration a task can carry, in hours.
const MinDuration = 0.5

// ApplyDrop moves a task to the dropped start instant. Manual placement wins
// over automatic placement: no availability check is made.
func ApplyDrop(task *models.Task, start time.Time) {
	task.SetSlot(models.Slot{
		Date: start.Format(models.DateLayout),
		Time: start.Format(models.TimeLayout),
	})
}

// ApplyResize sets the duration from the task's start to the new end instant,
// rounded to the nearest half hour. Like ApplyDrop it skips conflict checks.
func ApplyResize(task *models.Task, end time.Time) error {
	start, ok := task.Start()
	if !ok {
		return fmt.Errorf("cannot resize unscheduled task %s", task.ID)
	}
	if !end.After(start) {
		return fmt.Errorf("cannot resize task %s: end %s is not after start %s",
			task.ID, end.Format(time.DateTime), start.Format(time.DateTime))
	}
	task.Duration = RoundHalfHour(end.Sub(start).Hours())
	return nil
}

// RoundHalfHour rounds hours to the nearest 0.5, never below MinDuration.
func RoundHalfHour(hours float64) float64 {
	r := math.Round(hours*2) / 2
	if r < MinDuration {
		return MinDuration
	}
	return r
}
