package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

const taskColumns = `id, name, duration, preferred_date, notes, task_type,
	scheduled_date, scheduled_time, assigned_to, created_at`

// LoadAll returns every task in planner order.
func (db *DB) LoadAll(ctx context.Context) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY position, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a task by its ID.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

type TaskCounts struct {
	Total      int
	Scheduled  int
	Assigned   int
	TotalHours float64
}

func (db *DB) CountTasks(ctx context.Context) (TaskCounts, error) {
	var c TaskCounts
	err := db.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(scheduled_date),
			count(assigned_to),
			coalesce(sum(duration), 0)
		FROM tasks
	`).Scan(&c.Total, &c.Scheduled, &c.Assigned, &c.TotalHours)
	if err != nil {
		return c, fmt.Errorf("failed to count tasks: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		preferred, date, clock, assignee sql.NullString
		createdAt                        string
	)
	err := s.Scan(&t.ID, &t.Name, &t.Duration, &preferred, &t.Notes, &t.TaskType,
		&date, &clock, &assignee, &createdAt)
	if err != nil {
		return nil, err
	}

	t.PreferredDate = nullable(preferred)
	t.ScheduledDate = nullable(date)
	t.ScheduledTime = nullable(clock)
	t.AssignedTo = nullable(assignee)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
