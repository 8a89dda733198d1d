package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("exported", zap.String("filename", "chat-whatsapp-dark-2024-01-15.png"))
	l.Debug("hidden")
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "exported" || entry["filename"] != "chat-whatsapp-dark-2024-01-15.png" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Debug("frame tick")
	_ = l.Sync()
	if !strings.Contains(buf.String(), "[DEBUG]") || !strings.Contains(buf.String(), "frame tick") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "loud", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Debug("no")
	l.Info("yes")
	_ = l.Sync()
	if strings.Contains(buf.String(), `"no"`) || !strings.Contains(buf.String(), `"yes"`) {
		t.Errorf("level fallback wrong: %q", buf.String())
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(Config{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("New() with unknown format should fail")
	}
}

func TestNew_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chat2png.log")
	l, err := New(Config{Level: "info", Format: "json", File: path}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("to file")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestGetBeforeInit(t *testing.T) {
	Set(nil)
	if Get() == nil {
		t.Fatal("Get() returned nil before Init")
	}
	Info("safe on nop logger")
	if err := Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}
