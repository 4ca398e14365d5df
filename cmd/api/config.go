package main

import (
	"log/slog"
	"time"

	"github.com/dmetrik/gamehall/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" default:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	// ContentPath points at the TOML game tuning; empty runs on defaults.
	ContentPath string `env:"APP_CONTENT_PATH" default:""`

	Postgres config.PostgresConfig
	Engine   config.EngineConfig
}
