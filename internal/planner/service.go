// Package planner is the command dispatcher around the scheduling and
// assignment core. Every mutation goes through Dispatch, one at a time.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/internal/assign"
	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/internal/qualifications"
	"github.com/nick-dorsch/slotplan/internal/scheduler"
	"github.com/nick-dorsch/slotplan/internal/store"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Persistence loads and saves the whole task collection.
type Persistence interface {
	LoadAll(ctx context.Context) ([]models.Task, error)
	SaveAll(ctx context.Context, tasks []models.Task) error
}

type Service struct {
	mu sync.Mutex

	store      *store.Store
	sched      *scheduler.Scheduler
	assigner   *assign.Assigner
	registry   *qualifications.Provider
	persist    Persistence
	log        zerolog.Logger
	now        func() time.Time
	newID      func() string
	autoAssign bool
}

type Option func(*Service)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithRegistry(p *qualifications.Provider) Option {
	return func(s *Service) { s.registry = p }
}

func WithPersistence(p Persistence) Option {
	return func(s *Service) { s.persist = p }
}

// WithAutoAssign controls whether typed tasks get an assignee when they are
// created or imported.
func WithAutoAssign(on bool) Option {
	return func(s *Service) { s.autoAssign = on }
}

func New(sched *scheduler.Scheduler, opts ...Option) *Service {
	s := &Service{
		store:      store.New(),
		sched:      sched,
		log:        zerolog.Nop(),
		now:        time.Now,
		newID:      uuid.NewString,
		autoAssign: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = scheduler.New(scheduler.DefaultConfig(), scheduler.WithClock(s.now), scheduler.WithLogger(s.log))
	}
	if s.registry == nil {
		s.registry = qualifications.NewProvider(nil)
	}
	s.assigner = assign.New(s.log)
	return s
}

// Load replaces the in-memory tasks with whatever persistence holds.
func (s *Service) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	tasks, err := s.persist.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(tasks)
	s.log.Debug().Int("tasks", len(tasks)).Msg("tasks loaded")
	return nil
}

func (s *Service) Tasks() []models.Task {
	return s.store.Snapshot()
}

func (s *Service) Get(id string) (models.Task, error) {
	t, ok := s.store.Get(id)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

func (s *Service) Registry() *qualifications.Registry {
	return s.registry.Get()
}

func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// Dispatch runs one command. Commands are serialized; a command either
// fails with an error and changes nothing, or succeeds and persists.
func (s *Service) Dispatch(ctx context.Context, cmd Command) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res *Result
		err error
	)
	switch c := cmd.(type) {
	case CreateTask:
		res, err = s.createTask(c)
	case UpdateTask:
		res, err = s.updateTask(c)
	case DeleteTask:
		res, err = s.deleteTask(c)
	case ImportBatch:
		res, err = s.importBatch(c)
	case DragReschedule:
		res, err = s.dragReschedule(c)
	case ResizeDuration:
		res, err = s.resizeDuration(c)
	case AssignTask:
		res, err = s.assignTask(c)
	default:
		return nil, fmt.Errorf("unknown command %T", cmd)
	}
	if err != nil {
		s.log.Debug().Err(err).Str("command", cmd.commandName()).Msg("command rejected")
		return nil, err
	}

	res.SaveErr = s.save(ctx)
	return res, nil
}

func (s *Service) save(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	tasks := s.store.Snapshot()
	if err := s.persist.SaveAll(ctx, tasks); err != nil {
		s.log.Error().Err(err).Int("tasks", len(tasks)).Msg("failed to save tasks")
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}

func (s *Service) createTask(c CreateTask) (*Result, error) {
	in := c.Input
	if err := in.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	task := s.newTask(in)
	s.place(&task, res)
	s.store.Put(task)

	s.log.Info().Str("task_id", task.ID).Str("name", task.Name).
		Str("date", models.StringValue(task.ScheduledDate)).Str("time", models.StringValue(task.ScheduledTime)).
		Msg("task created")
	res.Task = &task
	return res, nil
}

func (s *Service) newTask(in TaskInput) models.Task {
	return models.Task{
		ID:            s.newID(),
		Name:          in.Name,
		Duration:      in.Duration,
		PreferredDate: in.PreferredDate,
		Notes:         in.Notes,
		TaskType:      in.TaskType,
		AssignedTo:    in.AssignedTo,
		CreatedAt:     s.now().UTC(),
	}
}

// place schedules task against the current store and, for typed tasks
// without an assignee, picks one.
func (s *Service) place(task *models.Task, res *Result) {
	slot, err := s.sched.ScheduleTask(s.store.Snapshot(), task)
	switch {
	case errors.Is(err, scheduler.ErrNoSlot):
		task.ClearSlot()
		res.notice(fmt.Sprintf("no free slot for %q within %d days; left unscheduled",
			task.Name, s.sched.Config().LookaheadDays))
		return
	case err != nil:
		res.notice(fmt.Sprintf("could not schedule %q: %v", task.Name, err))
		return
	}
	res.Slot = &slot
	if slot.Fallback {
		res.notice(fmt.Sprintf("no free slot for %q within %d days; placed on %s %s without a conflict check",
			task.Name, s.sched.Config().LookaheadDays, slot.Date, slot.Time))
	}

	if s.autoAssign && task.AssignedTo == nil && task.TaskType != "" {
		s.autoAssignTask(task, res)
	}
}

func (s *Service) autoAssignTask(task *models.Task, res *Result) {
	member, ok := s.assigner.AssignTeamMember(s.store.Snapshot(), s.registry.Get(), *task,
		models.StringValue(task.ScheduledDate))
	if !ok {
		res.notice(fmt.Sprintf("no qualified member for task type %q", task.TaskType))
		return
	}
	task.AssignedTo = &member
}

func (s *Service) updateTask(c UpdateTask) (*Result, error) {
	task, ok := s.store.Get(c.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, c.ID)
	}
	in := c.Input
	if c.Patch != nil {
		in = InputFromTask(task)
		if err := c.Patch(&in); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return nil, err
			}
			return nil, invalid("input", "%v", err)
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	task.Name = in.Name
	task.Duration = in.Duration
	task.PreferredDate = in.PreferredDate
	task.Notes = in.Notes
	task.TaskType = in.TaskType
	task.AssignedTo = in.AssignedTo

	res := &Result{}
	if task.ScheduledDate != nil {
		s.place(&task, res)
	}
	s.store.Put(task)

	s.log.Info().Str("task_id", task.ID).Bool("rescheduled", res.Slot != nil).Msg("task updated")
	res.Task = &task
	return res, nil
}

func (s *Service) deleteTask(c DeleteTask) (*Result, error) {
	task, ok := s.store.Get(c.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, c.ID)
	}
	s.store.Delete(c.ID)
	s.log.Info().Str("task_id", c.ID).Str("name", task.Name).Msg("task deleted")
	return &Result{Task: &task}, nil
}

func (s *Service) importBatch(c ImportBatch) (*Result, error) {
	rows, skipped := importer.ParseRows(c.Rows, s.log)
	res := &Result{Skipped: skipped}

	for _, row := range rows {
		in := inputFromRow(row)
		if err := in.Validate(); err != nil {
			s.log.Warn().Err(err).Int("row", row.Index+1).Msg("skipping import row")
			res.Skipped = append(res.Skipped, importer.Skipped{Index: row.Index, Reason: err.Error()})
			continue
		}
		task := s.newTask(in)
		s.place(&task, res)
		s.store.Put(task)
		res.Imported = append(res.Imported, task)
	}

	s.log.Info().Int("imported", len(res.Imported)).Int("skipped", len(res.Skipped)).Msg("import finished")
	return res, nil
}

func (s *Service) dragReschedule(c DragReschedule) (*Result, error) {
	task, ok := s.store.Get(c.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, c.ID)
	}
	if c.Start.IsZero() {
		return nil, invalid("start", "must be set")
	}
	scheduler.ApplyDrop(&task, c.Start)
	s.store.Put(task)

	slot := models.Slot{Date: *task.ScheduledDate, Time: *task.ScheduledTime}
	s.log.Info().Str("task_id", task.ID).Str("date", slot.Date).Str("time", slot.Time).Msg("task moved")
	return &Result{Task: &task, Slot: &slot}, nil
}

func (s *Service) resizeDuration(c ResizeDuration) (*Result, error) {
	task, ok := s.store.Get(c.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, c.ID)
	}
	if err := scheduler.ApplyResize(&task, c.End); err != nil {
		return nil, &ValidationError{Field: "end", Message: err.Error()}
	}
	s.store.Put(task)

	s.log.Info().Str("task_id", task.ID).Float64("duration", task.Duration).Msg("task resized")
	return &Result{Task: &task}, nil
}

func (s *Service) assignTask(c AssignTask) (*Result, error) {
	task, ok := s.store.Get(c.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, c.ID)
	}
	res := &Result{}

	switch {
	case c.Clear:
		task.AssignedTo = nil
	case c.Member != "":
		reg := s.registry.Get()
		if !reg.IsEmpty() && task.TaskType != "" && !reg.IsQualified(c.Member, task.TaskType) {
			return nil, invalid("member", "%s is not qualified for %q", c.Member, task.TaskType)
		}
		member := c.Member
		task.AssignedTo = &member
	default:
		if !task.IsScheduled() {
			return nil, invalid("task", "%s is not scheduled", task.ID)
		}
		member, ok := s.assigner.AssignTeamMember(s.store.Snapshot(), s.registry.Get(), task, *task.ScheduledDate)
		if !ok {
			res.notice(fmt.Sprintf("no qualified member for task type %q", task.TaskType))
		} else {
			task.AssignedTo = &member
		}
	}
	s.store.Put(task)

	s.log.Info().Str("task_id", task.ID).Str("assigned_to", task.Assignee()).Msg("task assignment changed")
	res.Task = &task
	return res, nil
}
