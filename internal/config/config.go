package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultDSN         = "host=localhost user=postgres password=postgres dbname=retail port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort       string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	JWTTTL         time.Duration
	CORSOrigins    string
	LogLevel       string
	AppEnv         string
	PageSizeMax    int

	// Warnings collects non-fatal findings (default DSN, default CORS) for the caller to log.
	Warnings []string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AppEnv:         getEnv("APP_ENV", "production"),
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	pageMax, err := strconv.Atoi(getEnv("PAGE_SIZE_MAX", "100"))
	if err != nil || pageMax <= 0 {
		return nil, errors.New("PAGE_SIZE_MAX must be a positive integer")
	}
	cfg.PageSizeMax = pageMax

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DatabaseDriver == DriverPostgres && cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN uses the default value, set your own Postgres DSN in production")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain in production")
	}

	return cfg, nil
}

// Validate checks the settings that must hold before the server starts.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("invalid HTTP_PORT %q", c.HTTPPort)
	}
	return nil
}

// CORSOriginList splits the comma separated origins and trims each entry.
func (c *Config) CORSOriginList() []string {
	origins := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
