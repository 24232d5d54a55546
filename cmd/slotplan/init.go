package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nick-dorsch/slotplan/internal/db"
)

const configTemplate = `# slotplan configuration
storage:
  driver: sqlite
  path: .slotplan/slotplan.db
snapshot_path: .slotplan/snapshot.jsonl
work_hours:
  start: 9
  end: 17
lookahead_days: 30
skip_weekends: false
strict_exhaustion: false
auto_assign: true
qualifications:
  path: .slotplan/qualifications.json
  watch: true
log:
  level: info
  format: console
server:
  addr: ":8000"
  rate_per_sec: 20
  burst: 40
  shutdown_timeout: 5s
backup:
  schedule: ""
  dir: .slotplan/backups
`

const qualificationsTemplate = `{
  "qualifications": {},
  "teamMembers": {}
}
`

func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, err
	}
	return true, nil
}

func runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	dir := filepath.Join(targetDir, ".slotplan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create .slotplan directory: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Created .slotplan/ directory")

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("slotplan.db*\nbackups/\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintln(stdout, "✓ Created .slotplan/.gitignore")

	created, err := writeIfMissing(filepath.Join(dir, "config.yaml"), configTemplate)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if created {
		fmt.Fprintln(stdout, "✓ Created .slotplan/config.yaml")
	}

	created, err = writeIfMissing(filepath.Join(dir, "qualifications.json"), qualificationsTemplate)
	if err != nil {
		return fmt.Errorf("failed to create qualifications file: %w", err)
	}
	if created {
		fmt.Fprintln(stdout, "✓ Created .slotplan/qualifications.json")
	}

	finalDBPath := dbPath
	if finalDBPath == "" {
		finalDBPath = filepath.Join(dir, "slotplan.db")
	}
	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(stdout, "✓ Initialized database at %s\n", finalDBPath)

	snapshotPath := filepath.Join(dir, "snapshot.jsonl")
	if _, err := os.Stat(snapshotPath); err == nil {
		n, err := database.ImportSnapshot(ctx, snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Fprintf(stdout, "✓ Imported %d tasks from %s\n", n, snapshotPath)
	}

	fmt.Fprintln(stdout, "✓ Slotplan initialized successfully")
	return nil
}
