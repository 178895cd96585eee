// Package logging points the standard logger at stdout and, when configured,
// a size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"reelstream/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the log output for cfg and returns a closer for the file
// writer. With no file configured logs go to stdout only.
func Setup(cfg config.LogSettings) (io.Closer, error) {
	path := strings.TrimSpace(cfg.File)
	if path == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.Printf("[logging] writing to %s (max %dMB x %d, %dd)", path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	return rotator, nil
}
