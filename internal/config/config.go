package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

// EngineConfig holds the settlement knobs that vary per deployment; game
// tuning lives in the content file instead.
type EngineConfig struct {
	HouseAccountID int64         `env:"ENGINE_HOUSE_ACCOUNT_ID" default:"1"`
	TokenTTL       time.Duration `env:"ENGINE_TOKEN_TTL" default:"90s"`
	MatchWait      time.Duration `env:"ENGINE_MATCH_WAIT" default:"60s"`
	ChoiceWait     time.Duration `env:"ENGINE_CHOICE_WAIT" default:"60s"`
	SweepInterval  time.Duration `env:"ENGINE_SWEEP_INTERVAL" default:"5s"`
}
