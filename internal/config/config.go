// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Registration store
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	SeedDoors    bool   `env:"SEED_DOORS" envDefault:"true"`

	// Redis, shared by the cache backend, rate limiter and access log
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Result cache
	CacheEnabled          bool          `env:"CACHE_ENABLED" envDefault:"true"`
	CacheBackend          string        `env:"CACHE_BACKEND" envDefault:"memory"`
	RegistrationsCacheTTL time.Duration `env:"REGISTRATIONS_CACHE_TTL" envDefault:"120s"`
	AccessCacheTTL        time.Duration `env:"ACCESS_CACHE_TTL" envDefault:"60s"`

	// Access evaluation: "any" grants when one window matches, "all" requires every window
	AccessRestrictionPolicy string `env:"ACCESS_RESTRICTION_POLICY" envDefault:"any"`

	// Rate limiting
	RateLimitEnabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitBackend  string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Access decision stream
	AccessLogEnabled bool `env:"ACCESS_LOG_ENABLED" envDefault:"false"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 64KB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesRedis reports whether any component needs the Redis client.
func (c *Config) UsesRedis() bool {
	return (c.CacheEnabled && c.CacheBackend == BackendRedis) ||
		(c.RateLimitEnabled && c.RateLimitBackend == BackendRedis) ||
		c.AccessLogEnabled
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks option values and combinations.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StoreBackend))
	}

	if c.CacheBackend != BackendMemory && c.CacheBackend != BackendRedis {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.CacheBackend))
	}
	if c.RateLimitBackend != BackendMemory && c.RateLimitBackend != BackendRedis {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.RateLimitBackend))
	}
	if c.RegistrationsCacheTTL < 0 || c.AccessCacheTTL < 0 {
		errs = append(errs, errors.New("cache TTLs must not be negative"))
	}
	if c.AccessRestrictionPolicy != "any" && c.AccessRestrictionPolicy != "all" {
		errs = append(errs, fmt.Errorf("ACCESS_RESTRICTION_POLICY must be \"any\" or \"all\", got %q", c.AccessRestrictionPolicy))
	}
	if c.RateLimitEnabled && (c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.UsesRedis() && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required by the selected backends"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
