package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voyagen/runtv/internal/config"
)

func TestSetup_WritesFile(t *testing.T) {
	flags := log.Flags()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})

	path := filepath.Join(t.TempDir(), "logs", "runtv.log")
	closer, err := Setup(config.LogConfig{File: path, MaxSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	log.Printf("refresh done")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "refresh done") {
		t.Errorf("log file = %q", data)
	}
}

func TestSetup_NoFile(t *testing.T) {
	closer, err := Setup(config.LogConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := closer.Close(); err != nil {
		t.Error(err)
	}
}
