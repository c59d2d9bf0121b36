package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus3/worldcore/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
[world]
name = "arena"
worker_count = 3
fixed_step = "10ms"

[logging]
level = "debug"

[stress]
objects = 500
duration = "2s"
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "arena", cfg.World.Name)
		assert.Equal(t, 3, cfg.World.WorkerCount)
		assert.Equal(t, 10*time.Millisecond, cfg.World.FixedStep.Duration)
		assert.Equal(t, 16*time.Millisecond, cfg.World.TimeStep.Duration, "kept default")
		assert.True(t, cfg.World.Simulation)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.Equal(t, 500, cfg.Stress.Objects)
		assert.Equal(t, 4, cfg.Stress.Depth)
		assert.Equal(t, 2*time.Second, cfg.Stress.Duration.Duration)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "[world]\ntime_step = \"soon\"\n"))
		assert.ErrorContains(t, err, "soon")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "[stress]\ndepth = 0\n"))
		assert.Error(t, err)
	})
}

func TestWorldDesc(t *testing.T) {
	cfg := config.Default()
	cfg.World.Simulation = false
	cfg.World.FixedStep.Duration = 5 * time.Millisecond

	desc := cfg.WorldDesc(nil)
	assert.Equal(t, "world", desc.Name)
	assert.True(t, desc.Paused)

	w := cfg.NewWorld(zap.NewNop())
	assert.False(t, w.IsSimulating())
	assert.Equal(t, 5*time.Millisecond, w.Clock().FixedStep())
}

func TestNewLogger(t *testing.T) {
	log, err := config.NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = config.NewLogger(config.LoggingConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
