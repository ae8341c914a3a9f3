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
	tmpDir := t.TempDir()
	cfg, err := Load(filepath.Join(tmpDir, "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, uint32(16384), cfg.MaxFrameSize)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadAppliesFileOverridesAndValidates(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
listen:
  address: "0.0.0.0"
  port: 9999
max_frame_size: 32768
max_process_time: 500ms
shutdown_timeout: 5s
logging:
  level: DEBUG
  format: json
  output: stdout
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Listen.Port)
	assert.Equal(t, uint32(32768), cfg.MaxFrameSize)
	assert.Equal(t, 500*time.Millisecond, cfg.MaxProcessTime)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
max_frame_size: 0
logging:
  level: INFO
  format: text
  output: stdout
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestMustLoadWithoutConfigFails(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := MustLoad("")
	assert.Error(t, err)
}

func TestSaveWritesLoadableYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := defaultConfig()
	cfg.Listen.Port = 55555
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 55555, loaded.Listen.Port)
}
