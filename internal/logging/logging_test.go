package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		config    LogLevel
		message   LogLevel
		wantWrite bool
	}{
		{"debug at info level", InfoLevel, DebugLevel, false},
		{"info at info level", InfoLevel, InfoLevel, true},
		{"warn at info level", InfoLevel, WarnLevel, true},
		{"error at warn level", WarnLevel, ErrorLevel, true},
		{"info at error level", ErrorLevel, InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(Config{Format: HumanFormat, Level: tt.config, Output: &buf})
			logger.log(tt.message, "hello", nil)

			if got := buf.Len() > 0; got != tt.wantWrite {
				t.Errorf("wrote=%v, want %v", got, tt.wantWrite)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	logger.Info("parsed artifact", map[string]interface{}{"file": "usecase.puml"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["message"] != "parsed artifact" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestHumanFormatIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: &buf})

	logger.Warn("skipped line", map[string]interface{}{"line": 12})

	out := buf.String()
	if !strings.Contains(out, "skipped line") || !strings.Contains(out, "line=12") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
