// Package config loads pipeline configuration from .tracekg/config.json
// with built-in defaults and TRACEKG_* environment overrides. Configuration
// is passed into constructors explicitly; nothing reads it as global state.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"tracekg/internal/errors"
)

// Store backend identifiers.
const (
	BackendNeo4j  = "neo4j"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the complete tracekg configuration (v1 schema)
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	WorkDir string `json:"workDir" mapstructure:"workDir"`

	Store   StoreConfig   `json:"store" mapstructure:"store"`
	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// StoreConfig selects and parameterizes the property-graph store backend
type StoreConfig struct {
	Backend string      `json:"backend" mapstructure:"backend"`
	Neo4j   Neo4jConfig `json:"neo4j" mapstructure:"neo4j"`
	Retry   RetryConfig `json:"retry" mapstructure:"retry"`
}

// Neo4jConfig contains Neo4j connection parameters
type Neo4jConfig struct {
	URI      string `json:"uri" mapstructure:"uri"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// RetryConfig bounds retries against a transiently unavailable store
type RetryConfig struct {
	MaxAttempts int `json:"maxAttempts" mapstructure:"maxAttempts"`
	BaseDelayMs int `json:"baseDelayMs" mapstructure:"baseDelayMs"`
}

// ScanConfig contains source-tree scanning configuration
type ScanConfig struct {
	IgnoreDirs       []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

const currentConfigVersion = 1

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentConfigVersion,
		WorkDir: ".",
		Store: StoreConfig{
			Backend: BackendNeo4j,
			Neo4j: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				Username: "neo4j",
				Password: "password",
				Database: "neo4j",
			},
			Retry: RetryConfig{
				MaxAttempts: 4,
				BaseDelayMs: 250,
			},
		},
		Scan: ScanConfig{
			IgnoreDirs:       []string{"node_modules", "vendor", "__pycache__", "build", ".git"},
			MaxFileSizeBytes: 1000000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <workDir>/.tracekg/config.json.
// Missing file falls back to defaults; environment variables of the form
// TRACEKG_STORE_NEO4J_URI override both file values and defaults.
func LoadConfig(workDir string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("workDir", workDir)
	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.neo4j.uri", defaults.Store.Neo4j.URI)
	v.SetDefault("store.neo4j.username", defaults.Store.Neo4j.Username)
	v.SetDefault("store.neo4j.password", defaults.Store.Neo4j.Password)
	v.SetDefault("store.neo4j.database", defaults.Store.Neo4j.Database)
	v.SetDefault("store.retry.maxAttempts", defaults.Store.Retry.MaxAttempts)
	v.SetDefault("store.retry.baseDelayMs", defaults.Store.Retry.BaseDelayMs)
	v.SetDefault("scan.ignoreDirs", defaults.Scan.IgnoreDirs)
	v.SetDefault("scan.maxFileSizeBytes", defaults.Scan.MaxFileSizeBytes)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetEnvPrefix("TRACEKG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(workDir, ".tracekg"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ConfigInvalid, "reading config file", err)
		}
		// No config file: defaults plus env overrides still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "unmarshaling config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <workDir>/.tracekg/config.json
func (c *Config) Save(workDir string) error {
	dir := filepath.Join(workDir, ".tracekg")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentConfigVersion {
		return errors.New(errors.ConfigInvalid, "unsupported config version")
	}

	switch c.Store.Backend {
	case BackendNeo4j, BackendSQLite, BackendMemory:
	default:
		return errors.New(errors.ConfigInvalid, "unknown store backend: "+c.Store.Backend)
	}

	if c.Store.Backend == BackendNeo4j && c.Store.Neo4j.URI == "" {
		return errors.New(errors.ConfigInvalid, "store.neo4j.uri must not be empty")
	}

	if c.Store.Retry.MaxAttempts < 1 {
		return errors.New(errors.ConfigInvalid, "store.retry.maxAttempts must be at least 1")
	}

	return nil
}
