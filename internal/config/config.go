// Package config loads gateway settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

// Config carries every tunable of the gateway process.
type Config struct {
	ListenAddr  string `env:"FINADMIN_LISTEN_ADDR" envDefault:":8080"`
	UpstreamURL string `env:"FINADMIN_UPSTREAM_URL"`

	// TokenSecret keys the cookie envelope cipher. Rotating it
	// invalidates every outstanding session.
	TokenSecret string `env:"FINADMIN_TOKEN_SECRET"`

	CookieDomain string `env:"FINADMIN_COOKIE_DOMAIN"`
	CookieSecure bool   `env:"FINADMIN_COOKIE_SECURE" envDefault:"true"`

	// RedisAddr enables the shared role-catalog cache when set.
	RedisAddr  string        `env:"FINADMIN_REDIS_ADDR"`
	CatalogTTL time.Duration `env:"FINADMIN_CATALOG_TTL" envDefault:"15m"`

	// PostgresDSN enables the persistent audit trail when set.
	PostgresDSN string `env:"FINADMIN_PG_DSN"`

	UpstreamTimeout time.Duration `env:"FINADMIN_UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamRetries int           `env:"FINADMIN_UPSTREAM_RETRIES" envDefault:"2"`

	RateBurst     int `env:"FINADMIN_RATE_BURST" envDefault:"20"`
	RatePerSecond int `env:"FINADMIN_RATE_PER_SECOND" envDefault:"10"`

	LogLevel string `env:"FINADMIN_LOG_LEVEL" envDefault:"info"`
}

// New loads configuration, reading envPath first when it exists.
func New(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envPath, err)
		}
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.UpstreamURL == "" {
		return errors.New("config: FINADMIN_UPSTREAM_URL is required")
	}
	if c.TokenSecret == "" {
		return errors.New("config: FINADMIN_TOKEN_SECRET is required")
	}
	if c.RatePerSecond <= 0 || c.RateBurst <= 0 {
		return errors.New("config: rate limit values must be positive")
	}
	return nil
}
