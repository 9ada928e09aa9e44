package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWithOptionsWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	log, err := NewWithOptions(Options{JSON: true, Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("hidden at info level")
	log.Info("matching run finished", zap.Duration("took", 1500*time.Millisecond))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one entry, got %q", data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["step"] != "matching run finished" || entry["level"] != "info" || entry["took"] != "1.5s" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithOptionsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	log, err := NewWithOptions(Options{Debug: true, Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("similarity computed")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "debug") || !strings.Contains(string(data), "similarity computed") {
		t.Fatalf("expected console debug entry, got %q", data)
	}
}
