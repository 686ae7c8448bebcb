package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all Bridge configuration, loaded from environment variables.
// Field names here preserve the wire contract's STK_ prefix: the Bridge and
// Hub are developed independently, and these env vars are part of how an
// operator wires the two together.
type Config struct {
	Host string `env:"STK_BRIDGE_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"STK_BRIDGE_PORT" envDefault:"3000"`

	HubURL         string        `env:"STK_HUB_URL,required"`
	HubTimeout     time.Duration `env:"STK_HUB_TIMEOUT_SECS" envDefault:"5s"`
	RequestTimeout time.Duration `env:"STK_REQUEST_TIMEOUT_SECS" envDefault:"30s"`

	DisableAuth      bool          `env:"STK_DISABLE_AUTH" envDefault:"false"`
	PasetoKeys       []string      `env:"STK_PASETO_KEYS" envSeparator:","`
	ReleaseCacheTTL  time.Duration `env:"STK_RELEASE_CACHE_TTL" envDefault:"60s"`

	RateLimitWindow time.Duration `env:"STK_RATE_LIMIT_WINDOW_SECS" envDefault:"60s"`
	RateLimitMax    int           `env:"STK_RATE_LIMIT_MAX" envDefault:"600"`

	// RedisURL is optional. Empty disables the Redis-backed rate limiter and
	// release-cache L2, falling back to in-process equivalents.
	RedisURL string `env:"STK_REDIS_URL"`

	LogLevel  string `env:"STK_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"STK_LOG_FORMAT" envDefault:"json"`

	MetricsPath string `env:"STK_METRICS_PATH" envDefault:"/metrics"`

	S3Endpoint  string `env:"STK_S3_ENDPOINT"`
	S3Region    string `env:"STK_S3_REGION" envDefault:"us-east-1"`
	S3AccessKey string `env:"STK_S3_ACCESS_KEY"`
	S3SecretKey string `env:"STK_S3_SECRET_KEY"`
}

// Load reads configuration from environment variables. Duration fields take
// a whole number of seconds ("60"); a Go duration string ("60s") is also
// accepted.
func Load() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{FuncMap: map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
			if n, err := strconv.Atoi(v); err == nil {
				return time.Duration(n) * time.Second, nil
			}
			return time.ParseDuration(v)
		},
	}}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
