package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort   string    `yaml:"server_port"`
	DatabaseURL  string    `yaml:"database_url"`
	BoltPath     string    `yaml:"bolt_path"`
	RedisURL     string    `yaml:"redis_url"`
	UserAgent    string    `yaml:"user_agent"`
	Timeout      string    `yaml:"timeout"`
	RateLimit    int       `yaml:"rate_limit"`
	ProbeTimeout string    `yaml:"probe_timeout"`
	Log          LogConfig `yaml:"log"`
}

// LoadFromFile loads config from a YAML file. One of database_url or
// bolt_path is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" && f.BoltPath == "" {
		return nil, ErrMissingStore
	}
	c := &Config{
		ServerPort:   f.ServerPort,
		DatabaseURL:  f.DatabaseURL,
		BoltPath:     f.BoltPath,
		RedisURL:     f.RedisURL,
		UserAgent:    f.UserAgent,
		FetchTimeout: parseDuration(f.Timeout),
		RateLimit:    f.RateLimit,
		ProbeTimeout: parseDuration(f.ProbeTimeout),
		Log:          f.Log,
	}
	c.applyDefaults()
	return c, nil
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
