package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesEngineLog(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")

	log, err := New(runDir, LevelInfo)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("phase advanced", "next", "specify")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(runDir, "engine.log"))
	if err != nil {
		t.Fatalf("read engine.log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "phase advanced" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["next"] != "specify" {
		t.Errorf("next = %v", entry["next"])
	}
}

func TestChildLoggersCarryAttributes(t *testing.T) {
	runDir := t.TempDir()
	log, err := New(runDir, LevelDebug)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.WithWave(2).WithTask("T3").WithAgent("reviewer").Info("evidence recorded")
	_ = log.Close()

	data, _ := os.ReadFile(filepath.Join(runDir, "engine.log"))
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if entry["wave"] != "2" || entry["task_id"] != "T3" || entry["agent"] != "reviewer" {
		t.Errorf("child attributes missing: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	runDir := t.TempDir()
	log, err := New(runDir, LevelWarn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("too quiet")
	log.Info("still too quiet")
	log.Warn("audible")
	_ = log.Close()

	data, _ := os.ReadFile(filepath.Join(runDir, "engine.log"))
	if strings.Contains(string(data), "too quiet") {
		t.Error("entries below the configured level were written")
	}
	if !strings.Contains(string(data), "audible") {
		t.Error("warn entry missing")
	}
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	log.Info("discarded")
	if err := log.Close(); err != nil {
		t.Errorf("Close on nop logger: %v", err)
	}
}
