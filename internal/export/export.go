// Package export writes the full task list as a backup document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// FileName is the default backup name for the day of now.
func FileName(now time.Time) string {
	return fmt.Sprintf("task-planner-backup-%s.json", now.Format(models.DateLayout))
}

// FormatFor picks "yaml" for .yaml/.yml paths and "json" otherwise.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Write encodes tasks as an indented JSON array, or a YAML sequence.
func Write(w io.Writer, tasks []models.Task, format string) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("failed to encode yaml export: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("failed to encode json export: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile writes the export to path through a temp file and rename.
func WriteFile(path string, tasks []models.Task) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	if err := Write(tmp, tasks, FormatFor(path)); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
