package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/campusauth/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultCleanupInterval = 10 * time.Minute
	defaultRequestTimeout  = 5 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string `env:"LOG_LEVEL"`

	// Address on which the service will be run
	ListenAddr string `env:"RUN_ADDRESS"`

	// Database to connect to
	DatabaseDSN string `env:"DATABASE_URI"`

	// Redis to keep revoked tokens in, like redis://localhost:6379/0
	// If empty revoked tokens are kept in process memory
	RedisURL string `env:"REDIS_URL"`

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string `env:"SECRET_KEY"`

	// Environment (dev, prod)
	Environment string `env:"ENVIRONMENT"`

	// Token lifetimes. Access token has to live shorter than refresh one
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL"`

	// How often expired refresh tokens and revocations are dropped
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`

	// Deadline of every request, zero disables it
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		CleanupInterval: defaultCleanupInterval,
		RequestTimeout:  defaultRequestTimeout,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.loadMap(envMap)
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// Load variables from environment in "KEY=value" form, like os.Environ() returns
// Empty variables are ignored
func (c *Config) LoadEnv(environ []string) error {
	envMap := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		envMap[key] = value
	}

	return c.loadMap(envMap)
}

func (c *Config) loadMap(envMap map[string]string) error {
	for key, value := range envMap {
		if value == "" {
			delete(envMap, key)
		}
	}

	if err := env.ParseWithOptions(c, env.Options{Environment: envMap}); err != nil {
		return fmt.Errorf("invalid environment. Err: %w", err)
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("campusauth", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisURL, "redis", "r", c.RedisURL, "Redis URL to keep revoked tokens (in memory if empty)")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.DurationVar(&c.CleanupInterval, "cleanup-interval", c.CleanupInterval, "Interval to drop expired tokens")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "Request deadline (0 to disable)")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database connection string is required"))
	}
	if c.AccessTokenTTL <= 0 || c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, fmt.Errorf("access token ttl (%s) must be positive and shorter than refresh token ttl (%s)", c.AccessTokenTTL, c.RefreshTokenTTL))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cleanup interval must be positive"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout must not be negative"))
	}

	return errors.Join(errs...)
}
