// Package config reads service configuration from environment
// variables with command-line flag fallbacks.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	JWTSecret         string        `env:"JWT_SECRET"`
	MigrationsDir     string        `env:"MIGRATIONS_DIR"`
	BroadcastInterval time.Duration `env:"BROADCAST_INTERVAL"`
}

// Parse reads configuration from flags and the environment. Environment
// values win over flags when both are set.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret
	envMigrationsDir := cfg.MigrationsDir
	envBroadcastInterval := cfg.BroadcastInterval

	flag.StringVar(&cfg.RunAddress, "a", ":8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "fundbid-secret", "JWT signing secret")
	flag.StringVar(&cfg.MigrationsDir, "m", "migrations", "migrations directory")
	flag.DurationVar(&cfg.BroadcastInterval, "b", 5*time.Second, "open pool broadcast interval")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envMigrationsDir != "" {
		cfg.MigrationsDir = envMigrationsDir
	}
	if envBroadcastInterval != 0 {
		cfg.BroadcastInterval = envBroadcastInterval
	}

	return cfg, nil
}
