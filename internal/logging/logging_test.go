package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Options{Level: "info", Format: "json", Writer: &buf}), "scheduler")

	log.Debug().Msg("hidden")
	log.Warn().Str("task_id", "t1").Msg("no slot")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "scheduler", line["component"])
	assert.Equal(t, "t1", line["task_id"])
	assert.Equal(t, "no slot", line["message"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Writer: &buf})
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}
