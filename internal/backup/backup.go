// Package backup writes a dated export of the task list on a cron schedule.
package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/internal/export"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Source supplies the tasks to back up.
type Source interface {
	Tasks() []models.Task
}

type Runner struct {
	dir string
	src Source
	log zerolog.Logger
	now func() time.Time

	mu sync.Mutex
	c  *cron.Cron
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates schedule (standard 5-field cron or a descriptor such as
// "@daily") and returns a stopped runner.
func New(schedule, dir string, src Source, log zerolog.Logger) (*Runner, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	r := &Runner{dir: dir, src: src, log: log, now: time.Now}
	r.c = cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))
	if _, err := r.c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(); err != nil {
			r.log.Error().Err(err).Msg("backup failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return r, nil
}

// RunOnce writes the export now and returns its path. Backups written on
// the same day replace each other.
func (r *Runner) RunOnce() (string, error) {
	tasks := r.src.Tasks()
	path := filepath.Join(r.dir, export.FileName(r.now()))
	if err := export.WriteFile(path, tasks); err != nil {
		return "", err
	}
	r.log.Info().Str("path", path).Int("tasks", len(tasks)).Msg("backup written")
	return path, nil
}

func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.Start()
	if entries := r.c.Entries(); len(entries) > 0 {
		r.log.Info().Time("next", entries[0].Next).Str("dir", r.dir).Msg("backup schedule started")
	}
}

// Stop halts the schedule and waits for a running backup, or for ctx.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.c.Stop().Done():
	case <-ctx.Done():
	}
}
