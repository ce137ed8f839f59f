package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "text", &buf)

	logger.Info("wrote task", "dir", "Si/gs")

	output := buf.String()
	if !strings.Contains(output, "wrote task") {
		t.Errorf("expected 'wrote task' in output, got: %s", output)
	}
	if !strings.Contains(output, "dir=Si/gs") {
		t.Errorf("expected 'dir=Si/gs' in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "JSON", &buf)

	logger.Info("wrote task", "dir", "Si/gs")

	output := buf.String()
	if !strings.Contains(output, `"msg":"wrote task"`) {
		t.Errorf("expected JSON msg field in output, got: %s", output)
	}
	if !strings.Contains(output, `"dir":"Si/gs"`) {
		t.Errorf("expected JSON dir field in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("should not appear")
	logger.Warn("pseudopotential not found")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "pseudopotential not found") {
		t.Errorf("WARN message should appear at WARN level, got: %s", output)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelDebug, "text", &buf)
	child := Component(logger, "workflow")

	child.Debug("add task", "merge", true)

	output := buf.String()
	if !strings.Contains(output, "component=workflow") {
		t.Errorf("expected component in output, got: %s", output)
	}
	if !strings.Contains(output, "merge=true") {
		t.Errorf("expected merge in output, got: %s", output)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if got := OrDiscard(l); got != l {
		t.Error("OrDiscard should return a non-nil logger unchanged")
	}
	// Must not panic.
	Component(nil, "task").Warn("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
