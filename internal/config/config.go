package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config represents the entire application configuration
type Config struct {
	DatabasePath string
	Port         int
	Logging      LoggingConfig
	Lock         LockConfig
	Redis        RedisConfig
}

type LoggingConfig struct {
	Level  string
	Format string
}

// LockConfig selects the per-match critical section implementation.
type LockConfig struct {
	Backend string // memory | redis
	Wait    time.Duration
	TTL     time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "brackets.db"),
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Lock: LockConfig{
			Backend: getEnv("LOCK_BACKEND", "memory"),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			Prefix:   getEnv("REDIS_PREFIX", "bracket"),
		},
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("SERVER_PORT", "8080")); err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT %d out of range", cfg.Port)
	}
	if cfg.Redis.DB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.Lock.Wait, err = time.ParseDuration(getEnv("LOCK_WAIT", "2s")); err != nil {
		return nil, fmt.Errorf("invalid LOCK_WAIT: %w", err)
	}
	if cfg.Lock.TTL, err = time.ParseDuration(getEnv("LOCK_TTL", "10s")); err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	switch cfg.Lock.Backend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.Lock.Backend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
