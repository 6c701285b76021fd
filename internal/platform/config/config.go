package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// RedisURL empty selects the in-memory store (single-instance dev mode).
	RedisURL string `env:"REDIS_URL"`

	MaxClientsPerStream int `env:"MAX_CLIENTS_PER_STREAM" default:"500"`

	ReaperInterval    time.Duration `env:"REAPER_INTERVAL" default:"1m"`
	AgentStaleTimeout time.Duration `env:"AGENT_STALE_TIMEOUT" default:"30m"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AppEnv == "production" && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required in production: the in-memory store cannot coordinate multiple instances")
	}
	if cfg.MaxClientsPerStream <= 0 {
		return fmt.Errorf("MAX_CLIENTS_PER_STREAM must be positive")
	}
	if cfg.ReaperInterval <= 0 || cfg.AgentStaleTimeout <= 0 {
		return fmt.Errorf("REAPER_INTERVAL and AGENT_STALE_TIMEOUT must be positive")
	}
	return nil
}
