package db

import (
	"context"
	"testing"
	"time"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	return db
}

func sampleTasks() []models.Task {
	created := time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC)
	scheduled := models.Task{
		ID:            "t1",
		Name:          "Inspect",
		Duration:      2,
		PreferredDate: models.StringPtr("2025-11-03"),
		Notes:         "bring ladder",
		TaskType:      "inspection",
		AssignedTo:    models.StringPtr("Alice"),
		CreatedAt:     created,
	}
	scheduled.SetSlot(models.Slot{Date: "2025-11-03", Time: "09:00:00"})

	loose := models.Task{ID: "t2", Name: "Unplaced", Duration: 1.5, CreatedAt: created.Add(time.Minute)}
	return []models.Task{scheduled, loose}
}

func TestSaveAllAndLoadAll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	tasks, err := db.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	got := tasks[0]
	if got.ID != "t1" || got.Name != "Inspect" || got.Duration != 2 {
		t.Errorf("unexpected first task: %+v", got)
	}
	if models.StringValue(got.ScheduledDate) != "2025-11-03" || models.StringValue(got.ScheduledTime) != "09:00:00" {
		t.Errorf("unexpected slot: %v %v", got.ScheduledDate, got.ScheduledTime)
	}
	if got.Assignee() != "Alice" || got.TaskType != "inspection" || got.Notes != "bring ladder" {
		t.Errorf("unexpected fields: %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected created_at: %v", got.CreatedAt)
	}

	if tasks[1].IsScheduled() || tasks[1].AssignedTo != nil || tasks[1].PreferredDate != nil {
		t.Errorf("expected second task to be bare, got %+v", tasks[1])
	}
}

func TestSaveAllReplaces(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	only := sampleTasks()[1:]
	only[0].Name = "Renamed"
	if err := db.SaveAll(ctx, only); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	tasks, err := db.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != "Renamed" {
		t.Fatalf("expected only the renamed task, got %+v", tasks)
	}
}

func TestSaveAllRollsBackOnBadTask(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	bad := sampleTasks()
	bad[1].Duration = 0
	if err := db.SaveAll(ctx, bad); err == nil {
		t.Fatal("expected error for zero duration")
	}

	c, err := db.CountTasks(ctx)
	if err != nil {
		t.Fatalf("CountTasks failed: %v", err)
	}
	if c.Total != 2 {
		t.Errorf("expected previous 2 tasks to survive, got %d", c.Total)
	}
}

func TestGetTask(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	task, err := db.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task == nil || task.Name != "Inspect" {
		t.Fatalf("unexpected task: %+v", task)
	}

	missing, err := db.GetTask(ctx, "nope")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing task, got %+v", missing)
	}
}

func TestCountTasks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tasks := sampleTasks()
	late := models.Task{ID: "t3", Name: "Late", Duration: 1, CreatedAt: time.Now()}
	late.SetSlot(models.Slot{Date: "2025-11-03", Time: "15:00:00"})
	early := models.Task{ID: "t4", Name: "Early", Duration: 1, CreatedAt: time.Now()}
	early.SetSlot(models.Slot{Date: "2025-11-03", Time: "08:00:00"})
	tasks = append(tasks, late, early)

	if err := db.SaveAll(ctx, tasks); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	c, err := db.CountTasks(ctx)
	if err != nil {
		t.Fatalf("CountTasks failed: %v", err)
	}
	if c.Total != 4 || c.Scheduled != 3 || c.Assigned != 1 || c.TotalHours != 5.5 {
		t.Errorf("unexpected counts: %+v", c)
	}
}

func TestOnChangeFiresAfterSave(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	calls := 0
	db.SetOnChange(func(context.Context) { calls++ })

	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 change call, got %d", calls)
	}

	bad := sampleTasks()
	bad[0].Name = ""
	if err := db.SaveAll(ctx, bad); err == nil {
		t.Fatal("expected error for blank name")
	}
	if calls != 1 {
		t.Errorf("expected hook to stay silent after a failed save, got %d calls", calls)
	}
}
