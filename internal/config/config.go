package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingStore is returned when neither a database URL nor a bolt path is configured.
var ErrMissingStore = errors.New("config: database_url or bolt_path is required")

const (
	DefaultServerPort   = "8080"
	DefaultBoltPath     = "runtv.db"
	DefaultUserAgent    = "RunTV/1.0"
	DefaultFetchTimeout = 15 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// Config holds application configuration.
type Config struct {
	ServerPort   string        `yaml:"server_port" env:"SERVER_PORT"`
	DatabaseURL  string        `yaml:"database_url" env:"DATABASE_URL"`
	BoltPath     string        `yaml:"bolt_path" env:"BOLT_PATH"`
	RedisURL     string        `yaml:"redis_url" env:"REDIS_URL"`
	UserAgent    string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	FetchTimeout time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	// RateLimit caps outgoing fetcher requests per second; 0 means unlimited.
	RateLimit    int           `yaml:"rate_limit" env:"FETCHER_RATE_LIMIT"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
	Log          LogConfig     `yaml:"log"`
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSize    int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS"`
}

// UsesPostgres reports whether snapshots go to Postgres rather than the bolt file.
func (c *Config) UsesPostgres() bool { return c.DatabaseURL != "" }

// Load builds config from environment variables.
// If neither DATABASE_URL nor BOLT_PATH is set, Load tries .env.local and .env first.
// Without either, the embedded store at runtv.db is used.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" && os.Getenv("BOLT_PATH") == "" {
		loadEnvFiles()
	}
	c := &Config{
		ServerPort:   os.Getenv("SERVER_PORT"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		BoltPath:     os.Getenv("BOLT_PATH"),
		RedisURL:     os.Getenv("REDIS_URL"),
		UserAgent:    os.Getenv("FETCHER_USER_AGENT"),
		FetchTimeout: envDuration("FETCHER_TIMEOUT"),
		RateLimit:    envInt("FETCHER_RATE_LIMIT"),
		ProbeTimeout: envDuration("PROBE_TIMEOUT"),
		Log: LogConfig{
			File:       os.Getenv("LOG_FILE"),
			MaxSize:    envInt("LOG_MAX_SIZE_MB"),
			MaxBackups: envInt("LOG_MAX_BACKUPS"),
			MaxAge:     envInt("LOG_MAX_AGE_DAYS"),
			Compress:   envBool("LOG_COMPRESS"),
		},
	}
	if c.DatabaseURL == "" && c.BoltPath == "" {
		c.BoltPath = DefaultBoltPath
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = DefaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.Log.MaxSize <= 0 {
		c.Log.MaxSize = 100
	}
}

func envDuration(key string) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return 0
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
