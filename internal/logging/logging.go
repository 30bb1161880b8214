// Package logging routes the standard logger to stdout and, optionally, a
// rotating log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/voyagen/runtv/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the standard logger at stdout plus the configured log file.
// The returned closer flushes the file; it is a no-op without one.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	if cfg.File == "" {
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	fileWriter := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Logging to file: %s", cfg.File)
	return fileWriter, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
