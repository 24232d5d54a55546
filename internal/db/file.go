package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// FileStore keeps all tasks in one JSON document. It suits small plans and
// setups where a database file is unwanted.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileDocument struct {
	Version int           `json:"version"`
	Tasks   []models.Task `json:"tasks"`
}

func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// LoadAll reads the document. A missing file is an empty plan. A bare JSON
// array of tasks is accepted too.
func (fs *FileStore) LoadAll(ctx context.Context) ([]models.Task, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	b, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}

	if b[0] == '[' {
		var tasks []models.Task
		if err := json.Unmarshal(b, &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse tasks file: %w", err)
		}
		return tasks, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tasks file: %w", err)
	}
	return doc.Tasks, nil
}

// SaveAll rewrites the document through a temp file and rename.
func (fs *FileStore) SaveAll(ctx context.Context, tasks []models.Task) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if tasks == nil {
		tasks = []models.Task{}
	}
	b, err := json.MarshalIndent(fileDocument{Version: 1, Tasks: tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), "tasks-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write tasks file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(name, fs.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (fs *FileStore) Close() error { return nil }

func (fs *FileStore) Path() string { return fs.path }
