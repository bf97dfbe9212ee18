// Package logging builds the process logger from config.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meltforce/liftlog/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level maps a config level name to a slog level. Unknown names mean info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to stdout, and also to a rotating file
// when cfg.File is set. The returned closer releases the file.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	return NewWriter(cfg, os.Stdout)
}

// NewWriter is New with stdout replaced by w.
func NewWriter(cfg config.LogConfig, stdout io.Writer) (*slog.Logger, io.Closer) {
	var out io.Writer = stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, file)
		closer = file
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: Level(cfg.Level)})), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
