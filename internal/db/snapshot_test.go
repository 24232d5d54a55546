package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open snapshot: %v", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestExportSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected meta + 2 task lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], `"record_type":"meta"`) || !strings.Contains(lines[0], `"task_count":2`) {
		t.Errorf("unexpected meta line: %s", lines[0])
	}

	var first models.Task
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatalf("task line is not a task: %v", err)
	}
	if first.ID != "t1" || models.StringValue(first.ScheduledTime) != "09:00:00" || first.Assignee() != "Alice" {
		t.Errorf("unexpected first task: %+v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &second); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if second["scheduledDate"] != nil {
		t.Errorf("expected null scheduledDate, got %v", second["scheduledDate"])
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	ctx := context.Background()
	if err := src.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := src.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	dst := setupTestDB(t)
	existing := models.Task{ID: "t1", Name: "Old name", Duration: 1}
	other := models.Task{ID: "keep", Name: "Keep me", Duration: 1}
	if err := dst.SaveAll(ctx, []models.Task{other, existing}); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	n, err := dst.ImportSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported tasks, got %d", n)
	}

	tasks, err := dst.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	if strings.Join(ids, ",") != "keep,t1,t2" {
		t.Errorf("unexpected order after import: %v", ids)
	}
	if tasks[1].Name != "Inspect" {
		t.Errorf("expected t1 overwritten from snapshot, got %q", tasks[1].Name)
	}
}

func TestImportSnapshotRejectsUnknownRecords(t *testing.T) {
	db := setupTestDB(t)
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte(`{"record_type":"feature","name":"x"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ImportSnapshot(context.Background(), path); err == nil {
		t.Fatal("expected error for unknown record type")
	}
}

func TestAutoSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "auto-snapshot.jsonl")
	db.EnableAutoSnapshot(path, zerolog.Nop())

	if err := db.SaveAll(ctx, sampleTasks()[:1]); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if got := len(readLines(t, path)); got != 2 {
		t.Fatalf("expected 2 lines after first save, got %d", got)
	}

	if err := db.SaveAll(ctx, sampleTasks()); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if got := len(readLines(t, path)); got != 3 {
		t.Fatalf("expected 3 lines after second save, got %d", got)
	}
}
