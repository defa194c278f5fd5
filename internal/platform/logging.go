package platform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig selects the level, encoding and optional rotating file sink.
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"` // json or pretty
	// File enables a rotated copy of every log line at this path.
	File       string `envconfig:"FILE"`
	MaxSizeMB  int    `envconfig:"MAX_SIZE_MB" default:"50"`
	MaxBackups int    `envconfig:"MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"MAX_AGE_DAYS" default:"14"`
}

// NewLogger builds a zerolog logger writing to out and, when configured, to
// a lumberjack-rotated file. The returned closer releases the file.
func NewLogger(cfg LogConfig, out io.Writer, service string) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	if out == nil {
		out = os.Stderr
	}
	console := out
	if cfg.Format == "pretty" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	writers := []io.Writer{console}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
