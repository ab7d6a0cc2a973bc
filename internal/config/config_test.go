package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "astscope", cfg.Name)
	assert.Contains(t, cfg.Scanner.IgnorePatterns, "node_modules")
	assert.Equal(t, filepath.Join(".astscope", "index.db"), cfg.Index.DatabasePath)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
name: myproject
scanner:
  workers: 4
  max_file_bytes: 1024
rules:
  query_timeout: 2s
logging:
  debug_mode: true
  level: debug
  json_format: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "myproject", cfg.Name)
	assert.Equal(t, 4, cfg.Scanner.Workers)
	assert.Equal(t, int64(1024), cfg.Scanner.MaxFileBytes)
	assert.Equal(t, 2*time.Second, cfg.GetQueryTimeout())
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSONFormat)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASTSCOPE_SCAN_WORKERS", "7")
	t.Setenv("ASTSCOPE_DB", "/tmp/custom.db")
	t.Setenv("ASTSCOPE_DEBUG", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scanner.Workers)
	assert.Equal(t, "/tmp/custom.db", cfg.Index.DatabasePath)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".astscope", "config.yaml")

	cfg := DefaultConfig()
	cfg.Name = "saved"
	cfg.Scanner.Workers = 3
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Name)
	assert.Equal(t, 3, loaded.Scanner.Workers)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Scanner.Workers = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestDurationDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.QueryTimeout = "bogus"
	assert.Equal(t, 10*time.Second, cfg.GetQueryTimeout())

	cfg.Watch.DebounceMillis = 0
	assert.Equal(t, 500*time.Millisecond, cfg.GetDebounce())
	cfg.Watch.DebounceMillis = 250
	assert.Equal(t, 250*time.Millisecond, cfg.GetDebounce())
}
