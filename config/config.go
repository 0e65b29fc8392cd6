package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the API process, loaded from
// environment variables.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	JWTSecret   string `env:"JWT_SECRET,required"`

	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"10"`

	OutboxInterval time.Duration `env:"OUTBOX_INTERVAL" envDefault:"2s"`
	ReconcileEvery time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}
