package db

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// EnableAutoSnapshot exports a snapshot to path after every successful
// write. Export failures are logged and never fail the write.
func (db *DB) EnableAutoSnapshot(path string, log zerolog.Logger) {
	db.SetOnChange(func(ctx context.Context) {
		if err := db.ExportSnapshot(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("snapshot export failed")
		}
	})
}

// ExportSnapshot writes one JSON line per record of v_snapshot_jsonl_lines
// (a meta line, then every task in order), replacing path atomically.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	rows, err := db.QueryContext(ctx, `
		SELECT json_line
		FROM v_snapshot_jsonl_lines
		ORDER BY record_order, sort_position
	`)
	if err != nil {
		return fmt.Errorf("failed to query snapshot lines: %w", err)
	}
	defer rows.Close()

	w := bufio.NewWriter(tempFile)
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("failed to scan snapshot line: %w", err)
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ImportSnapshot merges the tasks of a JSONL snapshot into the database.
// Tasks already present by id are overwritten in place; new ones are
// appended after the existing tasks.
func (db *DB) ImportSnapshot(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT coalesce(max(position) + 1, 0) FROM tasks`).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read task positions: %w", err)
	}

	imported := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return 0, fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
		case "task":
			var t models.Task
			if err := json.Unmarshal(line, &t); err != nil {
				return 0, fmt.Errorf("failed to unmarshal task: %w", err)
			}
			if t.ID == "" {
				return 0, fmt.Errorf("snapshot task %q has no id", t.Name)
			}

			position := next
			var existing int
			err := tx.QueryRowContext(ctx, `SELECT position FROM tasks WHERE id = ?`, t.ID).Scan(&existing)
			switch {
			case err == nil:
				position = existing
			case errors.Is(err, sql.ErrNoRows):
				next++
			default:
				return 0, fmt.Errorf("failed to look up task %s: %w", t.ID, err)
			}

			if err := db.insertTask(ctx, tx, position, &t); err != nil {
				return 0, fmt.Errorf("failed to sync task %s: %w", t.Name, err)
			}
			imported++
		default:
			return 0, fmt.Errorf("unknown snapshot record type %q", base.RecordType)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanner error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return imported, nil
}
