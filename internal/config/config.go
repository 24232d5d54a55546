package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

type Config struct {
	Storage        StorageConfig        `json:"storage"`
	SnapshotPath   string               `json:"snapshot_path"`
	WorkHours      WorkHours            `json:"work_hours"`
	LookaheadDays  int                  `json:"lookahead_days"`
	SkipWeekends   bool                 `json:"skip_weekends"`
	StrictExhaust  bool                 `json:"strict_exhaustion"`
	AutoAssign     *bool                `json:"auto_assign,omitempty"`
	Qualifications QualificationsConfig `json:"qualifications"`
	Log            LogConfig            `json:"log"`
	Server         ServerConfig         `json:"server"`
	Backup         BackupConfig         `json:"backup"`
}

type StorageConfig struct {
	// Driver is "sqlite" or "file".
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

type WorkHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type QualificationsConfig struct {
	Path  string `json:"path"`
	Watch bool   `json:"watch"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type ServerConfig struct {
	Addr       string  `json:"addr"`
	RatePerSec float64 `json:"rate_per_sec"`
	Burst      int     `json:"burst"`
	// ShutdownTimeout is a Go duration string, e.g. "5s".
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

type BackupConfig struct {
	// Schedule is a cron expression; empty disables periodic backups.
	Schedule string `json:"schedule"`
	Dir      string `json:"dir"`
}

// Default mirrors the planner's historical behaviour: 09:00-17:00 every day,
// 30 days of lookahead, unchecked fallback when the window is exhausted.
func Default() *Config {
	autoAssign := true
	return &Config{
		Storage:        StorageConfig{Driver: "sqlite", Path: ".slotplan/slotplan.db"},
		SnapshotPath:   ".slotplan/snapshot.jsonl",
		WorkHours:      WorkHours{Start: 9, End: 17},
		LookaheadDays:  30,
		AutoAssign:     &autoAssign,
		Qualifications: QualificationsConfig{Path: ".slotplan/qualifications.json"},
		Log:            LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			Addr:            ":8000",
			RatePerSec:      20,
			Burst:           40,
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Backup: BackupConfig{Dir: ".slotplan/backups"},
	}
}

// Load reads a YAML or JSON config file on top of Default. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.WorkHours.Start < 0 || c.WorkHours.Start > 23 {
		return fmt.Errorf("invalid config: work_hours.start %d out of range", c.WorkHours.Start)
	}
	if c.WorkHours.End < 1 || c.WorkHours.End > 24 {
		return fmt.Errorf("invalid config: work_hours.end %d out of range", c.WorkHours.End)
	}
	if c.WorkHours.Start >= c.WorkHours.End {
		return fmt.Errorf("invalid config: work_hours.start must be before work_hours.end")
	}
	if c.LookaheadDays <= 0 {
		return fmt.Errorf("invalid config: lookahead_days must be positive")
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "sqlite3", "file":
	default:
		return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.RatePerSec < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("invalid config: server rate limits must not be negative")
	}
	return nil
}

func (c *Config) AutoAssignEnabled() bool {
	return c.AutoAssign == nil || *c.AutoAssign
}
