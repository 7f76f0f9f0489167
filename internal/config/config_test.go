package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	isolate(t)
	path := writeFile(t, "rigsmith.yaml", `
strict: true
tolerance: 1e-6
log_level: debug
store_path: /tmp/diffs.db
character: hero
`)
	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 1e-6, cfg.Tolerance)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/diffs.db", cfg.StorePath)
	assert.Equal(t, "hero", cfg.Character)
	assert.Equal(t, "_", cfg.Separator)
}

func TestLoadTOML(t *testing.T) {
	isolate(t)
	path := writeFile(t, "rigsmith.toml", "separator = \"-\"\nlog_format = \"json\"\n")
	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "-", cfg.Separator)
	assert.Equal(t, FormatJSON, cfg.LogFormat)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "rigsmith.yaml", "character: hero\n")
	t.Setenv("RIGSMITH_CHARACTER", "villain")
	t.Setenv("RIGSMITH_STRICT", "true")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "villain", cfg.Character)
	assert.True(t, cfg.Strict)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Tolerance = -1
	cfg.LogLevel = "loud"
	cfg.LogFormat = "xml"
	cfg.Separator = ""
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"tolerance", "loud", "log_format", "separator"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, log.LevelWarn, logger.GetLevel())

	cfg.LogLevel = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
