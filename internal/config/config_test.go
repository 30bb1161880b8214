package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"DATABASE_URL", "SERVER_PORT", "REDIS_URL", "FETCHER_USER_AGENT", "FETCHER_TIMEOUT", "FETCHER_RATE_LIMIT", "PROBE_TIMEOUT", "LOG_FILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("BOLT_PATH", "")

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.BoltPath != DefaultBoltPath || c.UsesPostgres() {
		t.Errorf("store = %q/%v", c.BoltPath, c.UsesPostgres())
	}
	if c.ServerPort != "8080" || c.UserAgent != "RunTV/1.0" {
		t.Errorf("port/ua = %q/%q", c.ServerPort, c.UserAgent)
	}
	if c.FetchTimeout != 15*time.Second || c.ProbeTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", c.FetchTimeout, c.ProbeTimeout)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/runtv")
	t.Setenv("BOLT_PATH", "")
	t.Setenv("FETCHER_TIMEOUT", "3s")
	t.Setenv("FETCHER_RATE_LIMIT", "4")
	t.Setenv("PROBE_TIMEOUT", "nonsense")
	t.Setenv("LOG_FILE", "/tmp/runtv.log")
	t.Setenv("LOG_COMPRESS", "true")

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !c.UsesPostgres() || c.BoltPath != "" {
		t.Errorf("store = %q/%q", c.DatabaseURL, c.BoltPath)
	}
	if c.FetchTimeout != 3*time.Second || c.RateLimit != 4 {
		t.Errorf("fetcher = %v/%d", c.FetchTimeout, c.RateLimit)
	}
	if c.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("bad duration should fall back, got %v", c.ProbeTimeout)
	}
	if c.Log.File != "/tmp/runtv.log" || !c.Log.Compress || c.Log.MaxSize != 100 {
		t.Errorf("log = %+v", c.Log)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BOLT_PATH", "")
	t.Setenv("SERVER_PORT", "")
	env := "# local\nBOLT_PATH=\"data/local.db\"\nSERVER_PORT=9090\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.BoltPath != "data/local.db" || c.ServerPort != "9090" {
		t.Errorf("got bolt=%q port=%q", c.BoltPath, c.ServerPort)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtv.yaml")
	yml := `
bolt_path: /var/lib/runtv.db
redis_url: redis://localhost:6379/0
timeout: 20s
rate_limit: 2
log:
  file: runtv.log
  max_backups: 3
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.BoltPath != "/var/lib/runtv.db" || c.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("stores = %q/%q", c.BoltPath, c.RedisURL)
	}
	if c.FetchTimeout != 20*time.Second || c.RateLimit != 2 || c.ServerPort != "8080" {
		t.Errorf("got %+v", c)
	}
	if c.Log.File != "runtv.log" || c.Log.MaxBackups != 3 {
		t.Errorf("log = %+v", c.Log)
	}
}

func TestLoadFromFile_MissingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtv.yaml")
	if err := os.WriteFile(path, []byte("server_port: \"9000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); !errors.Is(err, ErrMissingStore) {
		t.Errorf("err = %v, want ErrMissingStore", err)
	}
}

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line       string
		key, value string
		ok         bool
	}{
		{"REDIS_URL=redis://localhost:6379", "REDIS_URL", "redis://localhost:6379", true},
		{"export SERVER_PORT=9000", "SERVER_PORT", "9000", true},
		{`FETCHER_USER_AGENT="VLC/3.0 # not a comment"`, "FETCHER_USER_AGENT", "VLC/3.0 # not a comment", true},
		{"LOG_FILE=run.log # rotate daily", "LOG_FILE", "run.log", true},
		{"BOLT_PATH='data/runtv.db'", "BOLT_PATH", "data/runtv.db", true},
		{"# comment", "", "", false},
		{"=value", "", "", false},
		{"NOEQUALS", "", "", false},
	}
	for _, tt := range tests {
		key, value, ok := parseEnvLine(tt.line)
		if key != tt.key || value != tt.value || ok != tt.ok {
			t.Errorf("parseEnvLine(%q) = %q, %q, %v; want %q, %q, %v", tt.line, key, value, ok, tt.key, tt.value, tt.ok)
		}
	}
}
