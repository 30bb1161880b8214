package config

import (
	"bufio"
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// envFileNames are read in order; earlier files win because existing
// variables are never overwritten.
var envFileNames = []string{".env.local", ".env"}

// loadEnvFiles sets environment variables from .env.local and .env found in
// the working directory or next to the executable.
func loadEnvFiles() {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		for _, name := range envFileNames {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if n := applyEnvFile(data); n > 0 {
				log.Printf("config: %d variable(s) from %s", n, path)
			}
		}
	}
}

// applyEnvFile parses KEY=value lines (optionally prefixed with "export")
// and sets the ones not already present. It returns how many it set.
func applyEnvFile(data []byte) int {
	set := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok || os.Getenv(key) != "" {
			continue
		}
		if os.Setenv(key, value) == nil {
			set++
		}
	}
	return set
}

func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	switch {
	case len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0]:
		value = value[1 : len(value)-1]
	default:
		// Unquoted values may carry a trailing " # comment".
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
	}
	return key, value, true
}
