// Package assign picks a qualified team member for a scheduled task by
// least same-day workload.
package assign

import (
	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/internal/qualifications"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

type Assigner struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Assigner {
	return &Assigner{log: log}
}

// AssignTeamMember returns the qualified member with the fewest tasks on
// date. Ties go to whoever the registry lists first. The task itself is not
// counted against any member. The caller writes the result into the task.
func (a *Assigner) AssignTeamMember(tasks []models.Task, reg *qualifications.Registry, task models.Task, date string) (string, bool) {
	if task.TaskType == "" {
		a.log.Warn().Str("task_id", task.ID).Msg("task has no type, cannot assign")
		return "", false
	}

	candidates := reg.QualifiedMembers(task.TaskType)
	if len(candidates) == 0 {
		a.log.Warn().Str("task_id", task.ID).Str("task_type", task.TaskType).
			Msg("no qualified members for task type")
		return "", false
	}

	best := ""
	bestLoad := -1
	for _, member := range candidates {
		load := Workload(tasks, member, date, task.ID)
		if bestLoad < 0 || load < bestLoad {
			best, bestLoad = member, load
		}
	}

	a.log.Debug().Str("task_id", task.ID).Str("member", best).Int("workload", bestLoad).
		Str("date", date).Msg("assigned team member")
	return best, true
}

// Workload counts tasks assigned to member on date, ignoring excludeID.
func Workload(tasks []models.Task, member, date, excludeID string) int {
	n := 0
	for i := range tasks {
		t := &tasks[i]
		if t.ID == excludeID && excludeID != "" {
			continue
		}
		if t.Assignee() == member && models.StringValue(t.ScheduledDate) == date {
			n++
		}
	}
	return n
}
