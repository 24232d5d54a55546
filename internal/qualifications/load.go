package qualifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	yaml "go.yaml.in/yaml/v3"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Load reads a qualifications document (JSON, or YAML by extension).
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read qualifications: %w", err)
	}
	doc, err := Parse(path, b)
	if err != nil {
		return nil, err
	}
	return NewRegistry(doc), nil
}

func Parse(path string, data []byte) (models.Qualifications, error) {
	var doc models.Qualifications

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("failed to parse qualifications yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
			return doc, fmt.Errorf("failed to parse qualifications json: %w", err)
		}
	}
	return doc, nil
}

// LoadOrEmpty never fails: a missing or malformed file yields an empty
// registry and a warning, so assignment degrades to "no qualified members".
func LoadOrEmpty(path string, log zerolog.Logger) *Registry {
	if strings.TrimSpace(path) == "" {
		return Empty()
	}
	r, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("qualifications unavailable, assignment disabled")
		return Empty()
	}
	log.Debug().Str("path", path).Int("task_types", len(r.TaskTypes())).Int("members", len(r.Members())).
		Msg("qualifications loaded")
	return r
}
