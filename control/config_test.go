package control

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_TOMLKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "ctx.toml", `
address = "db.internal:5432"
event_loops = 4

[baggage]
tenant = "acme"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5432", cfg.Address)
	assert.Equal(t, 4, cfg.EventLoops)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"tenant"}, cfg.TraceBaggage().Keys())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "ctx.yaml", `
address: cache:6379
pin_threads: true
log_level: debug
log_format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.Address)
	assert.True(t, cfg.PinThreads)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2, cfg.EventLoops)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "ctx.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config load failed")

	_, err = LoadConfig(writeFile(t, "bad.toml", "address = "))
	assert.ErrorContains(t, err, "config parse failed")

	_, err = LoadConfig(writeFile(t, "invalid.toml", `
address = ""
event_loops = -1
log_level = "loud"
log_format = "xml"
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "address is required")
	assert.ErrorContains(t, err, "event_loops must be >= 0")
	assert.ErrorContains(t, err, "log_level")
	assert.ErrorContains(t, err, "log_format")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger, err := NewLogger(cfg, "ctxping", &buf)
	require.NoError(t, err)
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "ctxping", line["app"])
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "info", lvl.String())
}
