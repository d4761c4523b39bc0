package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// StoreURL selects the session store: memory://, sqlite://<path> or
	// redis://<host>.
	StoreURL string `env:"STORE_URL" envDefault:"memory://"`
	// PubSubURL is a redis:// URL for cross-instance broadcast. Empty keeps
	// broadcasts in process.
	PubSubURL string `env:"PUBSUB_URL"`

	GridSize         int           `env:"GRID_SIZE" envDefault:"20"`
	TotalRounds      int           `env:"TOTAL_ROUNDS" envDefault:"5"`
	ChallengeTimeout time.Duration `env:"CHALLENGE_TIMEOUT" envDefault:"0s"`

	HostKeyHash   string `env:"HOST_KEY_HASH"`
	DemoSessionID string `env:"DEMO_SESSION_ID"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.GridSize < 2 || c.GridSize%2 != 0 {
		return fmt.Errorf("GRID_SIZE must be an even number >= 2, got %d", c.GridSize)
	}
	if c.TotalRounds < 1 {
		return fmt.Errorf("TOTAL_ROUNDS must be positive, got %d", c.TotalRounds)
	}
	if c.ChallengeTimeout < 0 {
		return fmt.Errorf("CHALLENGE_TIMEOUT must not be negative, got %s", c.ChallengeTimeout)
	}
	return nil
}
