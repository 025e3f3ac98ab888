package httpapi

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/concordhq/concord/internal/survey"
)

// Config holds the server settings. Values come from the environment and
// may be overridden by CLI flags.
type Config struct {
	Addr         string `env:"CONCORD_ADDR" envDefault:":3000"`
	DatabasePath string `env:"CONCORD_DB" envDefault:"concord.db"`
	SessionLimit int    `env:"CONCORD_SESSION_LIMIT" envDefault:"15"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionLimit <= 0 {
		cfg.SessionLimit = survey.DefaultSessionLimit
	}
	return cfg, nil
}
