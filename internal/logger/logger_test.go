package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nanodet/internal/config"
)

func TestNew_WritesLevels(t *testing.T) {
	var out bytes.Buffer
	l := New(&out)

	l.Info("loaded %d files", 2)
	l.Warning("slow")
	l.Error("failed: %v", "boom")

	text := out.String()
	for _, want := range []string{"INFO", "loaded 2 files", "WARNING", "slow", "ERROR", "failed: boom", "logger_test.go"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output:\n%s", want, text)
		}
	}
}

func TestNewLogger_WritesFiles(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(&config.Config{LogDirectory: logDir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.Info("info entry")
	l.Error("error entry")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.ReadFile(filepath.Join(logDir, "info.log"))
	if err != nil {
		t.Fatalf("Failed to read info.log: %v", err)
	}
	if !strings.Contains(string(info), "info entry") {
		t.Errorf("info.log missing entry: %s", info)
	}

	errs, err := os.ReadFile(filepath.Join(logDir, "error.log"))
	if err != nil {
		t.Fatalf("Failed to read error.log: %v", err)
	}
	if strings.Contains(string(errs), "info entry") || !strings.Contains(string(errs), "error entry") {
		t.Errorf("error.log has unexpected contents: %s", errs)
	}

	if _, err := os.Stat(filepath.Join(logDir, "warning.log")); err != nil {
		t.Errorf("warning.log should exist: %v", err)
	}
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	l, err := NewLogger(&config.Config{})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close without files should succeed: %v", err)
	}
}
