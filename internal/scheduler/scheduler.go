// Package scheduler places tasks into the first free slot inside the daily
// work-hours window.
//
// The search is greedy first-fit: days ascend from the start date, and
// within a day candidate start times ascend hour by hour. Nothing here reads
// the wall clock except ScheduleTask, and only through the injected clock.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// ErrNoSlot is returned by ScheduleTask in strict mode when the lookahead
// window holds no free slot.
var ErrNoSlot = errors.New("no available slot within lookahead window")

type Config struct {
	WorkStartHour int
	WorkEndHour   int
	LookaheadDays int
	// SkipWeekends excludes Saturdays and Sundays from the search. Skipped
	// days still count against LookaheadDays.
	SkipWeekends bool
	// Strict turns lookahead exhaustion into ErrNoSlot instead of the
	// unchecked fallback slot.
	Strict bool
}

func DefaultConfig() Config {
	return Config{WorkStartHour: 9, WorkEndHour: 17, LookaheadDays: 30}
}

type Scheduler struct {
	cfg Config
	now func() time.Time
	log zerolog.Logger
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func New(cfg Config, opts ...Option) *Scheduler {
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = DefaultConfig().LookaheadDays
	}
	if cfg.WorkEndHour <= cfg.WorkStartHour {
		def := DefaultConfig()
		cfg.WorkStartHour, cfg.WorkEndHour = def.WorkStartHour, def.WorkEndHour
	}
	s := &Scheduler{cfg: cfg, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Config() Config { return s.cfg }

// Today is the clock's current date at midnight, as a zone-free UTC value.
func (s *Scheduler) Today() time.Time {
	return dateOnly(s.now())
}

// IsSlotAvailable reports whether a task of the given duration can start at
// date/clock without running past the end of work hours or overlapping any
// other scheduled task. The task with id excludeID is ignored so a task never
// conflicts with its own previous placement.
func (s *Scheduler) IsSlotAvailable(tasks []models.Task, date, clock string, hours float64, excludeID string) bool {
	start, err := parseInstant(date, clock)
	if err != nil {
		return false
	}

	startHour := float64(start.Hour()) + float64(start.Minute())/60 + float64(start.Second())/3600
	if startHour+hours > float64(s.cfg.WorkEndHour) {
		return false
	}

	end := start.Add(models.HoursToDuration(hours))
	for i := range tasks {
		other := &tasks[i]
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		otherStart, ok := other.Start()
		if !ok {
			continue
		}
		otherEnd := otherStart.Add(models.HoursToDuration(other.Duration))
		if start.Before(otherEnd) && end.After(otherStart) {
			return false
		}
	}
	return true
}

// FindAvailableSlot returns the first slot at or after startDate that passes
// IsSlotAvailable. When the lookahead window is exhausted it returns the
// work-start slot of the day after the window with ok=false; that slot was
// never checked and may conflict.
func (s *Scheduler) FindAvailableSlot(tasks []models.Task, startDate time.Time, hours float64, excludeID string) (models.Slot, bool) {
	day := dateOnly(startDate)

	for i := 0; i < s.cfg.LookaheadDays; i++ {
		if s.cfg.SkipWeekends && isWeekend(day) {
			day = day.AddDate(0, 0, 1)
			continue
		}

		date := day.Format(models.DateLayout)
		for hour := s.cfg.WorkStartHour; hour < s.cfg.WorkEndHour; hour++ {
			clock := formatHour(hour)
			if s.IsSlotAvailable(tasks, date, clock, hours, excludeID) {
				return models.Slot{Date: date, Time: clock}, true
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return models.Slot{
		Date:     day.Format(models.DateLayout),
		Time:     formatHour(s.cfg.WorkStartHour),
		Fallback: true,
	}, false
}

// SearchStart resolves where the slot search for a task begins: the
// preferred date when present and parseable, otherwise today, and never
// earlier than today.
func (s *Scheduler) SearchStart(task *models.Task) time.Time {
	today := s.Today()
	start := today

	if task.PreferredDate != nil {
		preferred, err := time.Parse(models.DateLayout, *task.PreferredDate)
		if err != nil {
			s.log.Debug().Str("task_id", task.ID).Str("preferred_date", *task.PreferredDate).
				Msg("ignoring unparseable preferred date")
		} else {
			start = preferred
		}
	}

	if start.Before(today) {
		start = today
	}
	return start
}

// ScheduleTask searches a slot for task and writes it into the task. The
// task's own id is excluded from the conflict check so rescheduling never
// collides with its previous slot.
//
// On exhaustion the unchecked fallback slot is written and returned with
// Fallback set, unless the scheduler is strict, in which case the task is
// left untouched and ErrNoSlot is returned.
func (s *Scheduler) ScheduleTask(tasks []models.Task, task *models.Task) (models.Slot, error) {
	if task == nil {
		return models.Slot{}, fmt.Errorf("cannot schedule nil task")
	}
	if task.Duration <= 0 {
		return models.Slot{}, fmt.Errorf("cannot schedule task %s: duration must be positive", task.ID)
	}

	start := s.SearchStart(task)
	slot, ok := s.FindAvailableSlot(tasks, start, task.Duration, task.ID)
	if !ok {
		if s.cfg.Strict {
			s.log.Warn().Str("task_id", task.ID).Str("from", start.Format(models.DateLayout)).
				Int("lookahead_days", s.cfg.LookaheadDays).Msg("no free slot, leaving task unscheduled")
			return models.Slot{}, ErrNoSlot
		}
		s.log.Warn().Str("task_id", task.ID).Str("date", slot.Date).Str("time", slot.Time).
			Msg("lookahead exhausted, using unchecked fallback slot")
	}

	task.SetSlot(slot)
	return slot, nil
}

func parseInstant(date, clock string) (time.Time, error) {
	return time.Parse(models.DateLayout+"T"+models.TimeLayout, date+"T"+clock)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func formatHour(hour int) string {
	return fmt.Sprintf("%02d:00:00", hour)
}
