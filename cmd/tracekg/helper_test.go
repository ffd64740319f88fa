package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tracekg/internal/config"
	"tracekg/internal/logging"
)

func captureLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.InfoLevel,
		Output: buf,
	})
}

func TestApplyLoggingConfigRelevels(t *testing.T) {
	t.Setenv("TRACEKG_LOG_LEVEL", "")
	t.Setenv("TRACEKG_LOG_FORMAT", "")

	var buf bytes.Buffer
	logger := captureLogger(&buf)

	logger.Debug("before", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug emitted at info level: %q", buf.String())
	}

	applyLoggingConfig(logger, config.LoggingConfig{Format: "human", Level: "debug"})

	logger.Debug("after", nil)
	if !strings.Contains(buf.String(), "after") {
		t.Errorf("configured debug level not applied, output = %q", buf.String())
	}
}

func TestApplyLoggingConfigEnvWins(t *testing.T) {
	t.Setenv("TRACEKG_LOG_LEVEL", "error")
	t.Setenv("TRACEKG_LOG_FORMAT", "")

	var buf bytes.Buffer
	logger := captureLogger(&buf)

	applyLoggingConfig(logger, config.LoggingConfig{Format: "human", Level: "debug"})

	logger.Debug("quiet", nil)
	if buf.Len() != 0 {
		t.Errorf("env level must take precedence over the config file, output = %q", buf.String())
	}
}

func TestLoadConfigAppliesLoggingSection(t *testing.T) {
	t.Setenv("TRACEKG_LOG_LEVEL", "")
	t.Setenv("TRACEKG_LOG_FORMAT", "")

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".tracekg"), 0755); err != nil {
		t.Fatal(err)
	}
	cfgJSON := `{
		"version": 1,
		"store": {"backend": "memory"},
		"logging": {"format": "human", "level": "debug"}
	}`
	if err := os.WriteFile(filepath.Join(dir, ".tracekg", "config.json"), []byte(cfgJSON), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := captureLogger(&buf)
	cfg := loadConfig(dir, logger)

	if cfg.Logging.Level != "debug" {
		t.Fatalf("config level = %q, want debug", cfg.Logging.Level)
	}
	logger.Debug("visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("logging section of config.json was not applied, output = %q", buf.String())
	}
}
