// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything lucidityd needs at startup.
type Config struct {
	DBPath   string `env:"LUCIDITYD_DB_PATH" envDefault:"data/lucidity.db"`
	APIAddr  string `env:"LUCIDITYD_API_ADDR" envDefault:":8080"`
	AdminKey string `env:"LUCIDITYD_ADMIN_KEY"`

	TickInterval    time.Duration `env:"LUCIDITYD_TICK_INTERVAL" envDefault:"1s"`
	TicksPerCadence uint64        `env:"LUCIDITYD_TICKS_PER_CADENCE" envDefault:"60"`
	Speed           float64       `env:"LUCIDITYD_SPEED" envDefault:"1.0"`

	GlobalFlux           float64 `env:"LUCIDITYD_GLOBAL_FLUX" envDefault:"-0.1"`
	ResistanceWindow     int     `env:"LUCIDITYD_RESISTANCE_WINDOW" envDefault:"30"`
	LossThreshold        int     `env:"LUCIDITYD_LOSS_THRESHOLD" envDefault:"15"`
	AcclimationThreshold int     `env:"LUCIDITYD_ACCLIMATION_THRESHOLD" envDefault:"6"`

	OverridesPath string `env:"LUCIDITYD_OVERRIDES_PATH"`
	WorldSeed     int64  `env:"LUCIDITYD_WORLD_SEED" envDefault:"42"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
