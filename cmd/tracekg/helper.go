package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"tracekg/internal/config"
	"tracekg/internal/logging"
	"tracekg/internal/model"
	"tracekg/internal/store"
	"tracekg/internal/storage"
)

// newLogger creates the command logger. JSON command output forces logs to
// stay off stdout and switches them to JSON too.
func newLogger(outputFormat string) *logging.Logger {
	format := logging.HumanFormat
	if outputFormat == string(FormatJSON) || os.Getenv("TRACEKG_LOG_FORMAT") == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(os.Getenv("TRACEKG_LOG_LEVEL")),
	})
}

// getWorkDir resolves the working directory from the flag or cwd.
func getWorkDir() (string, error) {
	if workDirFlag != "" {
		return workDirFlag, nil
	}
	return os.Getwd()
}

func mustGetWorkDir() string {
	dir, err := getWorkDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// loadConfig loads .tracekg/config.json, falling back to defaults.
func loadConfig(workDir string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(workDir)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	if backendFlag != "" {
		cfg.Store.Backend = backendFlag
	}
	applyLoggingConfig(logger, cfg.Logging)
	return cfg
}

// applyLoggingConfig re-levels the command logger from the config file
// section. The TRACEKG_LOG_* env vars keep precedence, and a JSON output
// format keeps its JSON logs regardless of the configured format.
func applyLoggingConfig(logger *logging.Logger, cfg config.LoggingConfig) {
	if os.Getenv("TRACEKG_LOG_LEVEL") == "" && cfg.Level != "" {
		logger.SetLevel(logging.ParseLevel(cfg.Level))
	}
	if os.Getenv("TRACEKG_LOG_FORMAT") == "" && cfg.Format == "json" {
		logger.SetFormat(logging.JSONFormat)
	}
}

// openStore opens the configured backend.
func openStore(ctx context.Context, workDir string, cfg *config.Config, logger *logging.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendNeo4j:
		return store.NewNeo4j(ctx, cfg.Store, logger)
	case config.BackendSQLite:
		return storage.Open(workDir, logger)
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func mustOpenStore(ctx context.Context, workDir string, cfg *config.Config, logger *logging.Logger) store.Store {
	st, err := openStore(ctx, workDir, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	return st
}

func newContext() context.Context {
	return context.Background()
}

// CommitStats counts what a run wrote to the store.
type CommitStats struct {
	NodesCreated int `json:"nodesCreated"`
	NodesUpdated int `json:"nodesUpdated"`
	EdgesCreated int `json:"edgesCreated"`
	EdgesUpdated int `json:"edgesUpdated"`
}

// RunSummary is the tail section of every ingest run's output: what was
// committed, what was only warned about, and what failed. Warnings never
// affect the exit code; a fatal error does.
type RunSummary struct {
	RunID      string          `json:"runId"`
	DurationMs int64           `json:"durationMs"`
	Committed  CommitStats     `json:"committed"`
	Warnings   []model.Warning `json:"warnings,omitempty"`
	Fatal      string          `json:"fatal,omitempty"`
}

func newRunID() string {
	return uuid.NewString()
}

// printResponse formats and prints a command response, exiting on
// formatting failure.
func printResponse(resp interface{}, format string) {
	output, err := FormatResponse(resp, OutputFormat(format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
