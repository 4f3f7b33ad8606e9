package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "output", cfg.Paths.OutputDir)
	assert.Equal(t, 10*time.Minute, cfg.GetToolTimeout())
	assert.True(t, cfg.Build.GitInit)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
paths:
  output_dir: /srv/generated
build:
  tool_timeout: 90s
watch:
  parallelism: 4
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/generated", cfg.Paths.OutputDir)
	assert.Equal(t, 90*time.Second, cfg.GetToolTimeout())
	assert.Equal(t, 4, cfg.Watch.Parallelism)
	// untouched sections keep defaults
	assert.Equal(t, int64(1<<20), cfg.Build.MaxOutputBytes)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  output_dir: from-file\n"), 0644))

	t.Setenv("PLANFORGE_OUTPUT_DIR", "from-env")
	t.Setenv("PLANFORGE_DEBUG", "true")
	t.Setenv("PLANFORGE_WATCH_PARALLELISM", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Paths.OutputDir)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, 8, cfg.Watch.Parallelism)
}

func TestBadToolTimeoutFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Build.ToolTimeout = "not-a-duration"
	assert.Equal(t, 10*time.Minute, cfg.GetToolTimeout())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Paths.OutputDir = "elsewhere"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", loaded.Paths.OutputDir)
}
