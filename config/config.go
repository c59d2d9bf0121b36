// Package config loads the TOML configuration of world hosts such as the
// stress tool.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/plus3/worldcore/ecs"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type Config struct {
	World   WorldConfig   `toml:"world"`
	Logging LoggingConfig `toml:"logging"`
	Stress  StressConfig  `toml:"stress"`
}

type WorldConfig struct {
	Name        string `toml:"name"`
	WorkerCount int    `toml:"worker_count"` // 0 uses GOMAXPROCS
	// TimeStep is the interval between updates of a running world.
	TimeStep Duration `toml:"time_step"`
	// FixedStep, if set, is the simulated time of every update.
	FixedStep  Duration `toml:"fixed_step"`
	Simulation bool     `toml:"simulation"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type StressConfig struct {
	Objects  int      `toml:"objects"`
	Depth    int      `toml:"depth"`
	Duration Duration `toml:"duration"`
}

// Duration is a time.Duration written as a string such as "16ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return eris.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads the configuration at path. Values missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, eris.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Name:       "world",
			TimeStep:   Duration{16 * time.Millisecond},
			Simulation: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Stress: StressConfig{
			Objects:  10000,
			Depth:    4,
			Duration: Duration{10 * time.Second},
		},
	}
}

func (c *Config) validate() error {
	switch {
	case c.World.WorkerCount < 0:
		return eris.Errorf("world.worker_count must not be negative, got %d", c.World.WorkerCount)
	case c.World.TimeStep.Duration <= 0:
		return eris.New("world.time_step must be positive")
	case c.World.FixedStep.Duration < 0:
		return eris.New("world.fixed_step must not be negative")
	case c.Stress.Objects < 0 || c.Stress.Depth < 1:
		return eris.Errorf("stress needs objects >= 0 and depth >= 1, got %d and %d", c.Stress.Objects, c.Stress.Depth)
	}
	return nil
}

// WorldDesc returns the description of a world configured by c.
func (c *Config) WorldDesc(log *zap.Logger) ecs.WorldDesc {
	return ecs.WorldDesc{
		Name:        c.World.Name,
		Logger:      log,
		WorkerCount: c.World.WorkerCount,
		Paused:      !c.World.Simulation,
	}
}

// NewWorld creates a world configured by c.
func (c *Config) NewWorld(log *zap.Logger) *ecs.World {
	w := ecs.NewWorld(c.WorldDesc(log))
	w.SetTimeStep(c.World.FixedStep.Duration)
	return w
}
