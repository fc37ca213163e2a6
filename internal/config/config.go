package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"redis"`
	RedisURL    string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPass   string `env:"REDIS_PASSWORD"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"fairplay.db"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"fairplay"`

	StartingBalance     decimal.Decimal `env:"STARTING_BALANCE" envDefault:"100.00"`
	SettleMaxAttempts   uint            `env:"SETTLE_MAX_ATTEMPTS" envDefault:"4"`
	SettleRetryInterval time.Duration   `env:"SETTLE_RETRY_INTERVAL" envDefault:"15ms"`

	GameConfigFile string        `env:"GAME_CONFIG_FILE"`
	GameConfigTTL  time.Duration `env:"GAME_CONFIG_TTL" envDefault:"5s"`

	BetRateLimit  int           `env:"BET_RATE_LIMIT" envDefault:"30"`
	BetRateWindow time.Duration `env:"BET_RATE_WINDOW" envDefault:"1m"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if c.SettleMaxAttempts == 0 {
		return fmt.Errorf("SETTLE_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
