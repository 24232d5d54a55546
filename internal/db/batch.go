package db

import (
	"context"
	"fmt"
	"time"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// SaveAll replaces the stored tasks with tasks, in one transaction.
func (db *DB) SaveAll(ctx context.Context, tasks []models.Task) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	for i := range tasks {
		if err := db.insertTask(ctx, tx, i, &tasks[i]); err != nil {
			return fmt.Errorf("failed to save task %s: %w", tasks[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) insertTask(ctx context.Context, exec executor, position int, t *models.Task) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO tasks (
			id, position, name, duration, preferred_date, notes, task_type,
			scheduled_date, scheduled_time, assigned_to, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			duration = excluded.duration,
			preferred_date = excluded.preferred_date,
			notes = excluded.notes,
			task_type = excluded.task_type,
			scheduled_date = excluded.scheduled_date,
			scheduled_time = excluded.scheduled_time,
			assigned_to = excluded.assigned_to
	`
	_, err := exec.ExecContext(ctx, query,
		t.ID, position, t.Name, t.Duration, nullString(t.PreferredDate), t.Notes, t.TaskType,
		nullString(t.ScheduledDate), nullString(t.ScheduledTime), nullString(t.AssignedTo),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}
