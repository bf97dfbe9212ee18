package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meltforce/liftlog/internal/config"
)

// TestLevel verifies level names map to slog levels.
func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for name, want := range tests {
		if got := Level(name); got != want {
			t.Errorf("Level(%q) = %v, want %v", name, got, want)
		}
	}
}

// TestNewWritesFile verifies records reach both stdout and the rotating file.
func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liftlog.log")
	var stdout bytes.Buffer
	log, closer := NewWriter(config.LogConfig{Level: "warn", File: path, MaxSizeMB: 1}, &stdout)

	log.Info("dropped")
	log.Warn("kept", "set_id", 7)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(stdout.String(), "dropped") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(stdout.String(), "set_id=7") {
		t.Errorf("stdout = %q, want the warn record", stdout.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=kept") {
		t.Errorf("log file = %q, want the warn record", data)
	}
}
