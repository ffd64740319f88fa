package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tracekg/internal/config"
)

var initBackend string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration to .tracekg/config.json",
	Run:   runInit,
}

func init() {
	initCmd.Flags().StringVar(&initBackend, "store-backend", config.BackendNeo4j,
		"Store backend to configure (neo4j, sqlite, memory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	workDir := mustGetWorkDir()

	cfgPath := filepath.Join(workDir, ".tracekg", "config.json")
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", cfgPath)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.Store.Backend = initBackend
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Save(workDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (backend: %s)\n", cfgPath, initBackend)
}
