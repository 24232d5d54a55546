package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Store is the persistence API the planner saves through.
type Store interface {
	LoadAll(ctx context.Context) ([]models.Task, error)
	SaveAll(ctx context.Context, tasks []models.Task) error
	Close() error
}

// OpenStore opens the configured driver: "sqlite" (default) or "file".
// A sqlite store has its schema applied.
func OpenStore(ctx context.Context, driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		database, err := Open(path)
		if err != nil {
			return nil, err
		}
		if err := database.Init(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return database, nil
	case "file":
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
