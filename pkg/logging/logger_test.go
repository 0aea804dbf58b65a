package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewLogger_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level to be info, got %s", cfg.Level)
	}
	if cfg.Component != "ffdl" {
		t.Errorf("expected default component to be 'ffdl', got %s", cfg.Component)
	}
	if cfg.JSONFormat {
		t.Error("expected default JSONFormat to be false")
	}
}

func TestNewLogger_NilConfig(t *testing.T) {
	log := NewLogger(nil)
	if log == nil {
		t.Error("expected non-nil logger with nil config")
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var output map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return output
}

func TestLogger_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{
		Level:      LevelDebug,
		Component:  "export",
		JSONFormat: true,
		Output:     buf,
	})
	log.Info("test message", F("key", "value"))

	output := decodeLine(t, buf)

	if output["message"] != "test message" {
		t.Errorf("expected message 'test message', got %v", output["message"])
	}
	if output["component"] != "export" {
		t.Errorf("expected component 'export', got %v", output["component"])
	}
	if output["key"] != "value" {
		t.Errorf("expected key 'value', got %v", output["key"])
	}
	if _, ok := output["time"]; !ok {
		t.Error("expected timestamp field 'time' in output")
	}
	if output["level"] != "info" {
		t.Errorf("expected level 'info', got %v", output["level"])
	}
}

func TestLogger_AllLevels(t *testing.T) {
	tests := []struct {
		name     string
		logFunc  func(Logger)
		expected string
	}{
		{"debug", func(l Logger) { l.Debug("debug message") }, "debug"},
		{"info", func(l Logger) { l.Info("info message") }, "info"},
		{"warn", func(l Logger) { l.Warn("warn message") }, "warn"},
		{"error", func(l Logger) { l.Error("error message") }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := NewLogger(&Config{Level: LevelDebug, JSONFormat: true, Output: buf})

			tt.logFunc(log)

			output := decodeLine(t, buf)
			if output["level"] != tt.expected {
				t.Errorf("expected level %s, got %v", tt.expected, output["level"])
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelWarn, JSONFormat: true, Output: buf})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Error("expected warn message to be written")
	}
}

func TestLogger_FieldTypes(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	log.Info("typed",
		F("count", 3),
		F("ok", true),
		F("formats", []string{"json", "csv"}),
		F("elapsed", 2*time.Second),
		Err(errors.New("boom")),
	)

	output := decodeLine(t, buf)
	if output["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", output["count"])
	}
	if output["ok"] != true {
		t.Errorf("expected ok true, got %v", output["ok"])
	}
	if output["error"] != "boom" {
		t.Errorf("expected error 'boom', got %v", output["error"])
	}
	formats, ok := output["formats"].([]interface{})
	if !ok || len(formats) != 2 {
		t.Errorf("expected two formats, got %v", output["formats"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	log = log.With(F("stage", "export"), F("attempt", 1))
	log.Info("stage complete")

	output := decodeLine(t, buf)
	if output["stage"] != "export" {
		t.Errorf("expected stage 'export', got %v", output["stage"])
	}
	if output["attempt"] != float64(1) {
		t.Errorf("expected attempt 1, got %v", output["attempt"])
	}
}

func TestLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	ctx := ContextWithRunID(context.Background(), "run-123")
	ctx = ContextWithTranscriptID(ctx, "tr-9")
	log.WithContext(ctx).Info("with context")

	output := decodeLine(t, buf)
	if output["run_id"] != "run-123" {
		t.Errorf("expected run_id 'run-123', got %v", output["run_id"])
	}
	if output["transcript_id"] != "tr-9" {
		t.Errorf("expected transcript_id 'tr-9', got %v", output["transcript_id"])
	}
}

func TestLogger_WithContext_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	log.WithContext(context.Background()).Info("no ids")

	output := decodeLine(t, buf)
	if _, ok := output["run_id"]; ok {
		t.Error("expected no run_id field without context value")
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()

	// Should not panic.
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Error("error", Err(errors.New("x")))

	if log.With(F("k", "v")) != log {
		t.Error("expected With on nop logger to return itself")
	}
	if log.WithContext(context.Background()) != log {
		t.Error("expected WithContext on nop logger to return itself")
	}
}
