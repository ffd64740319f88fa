package main

import (
	"github.com/spf13/cobra"

	"tracekg/internal/version"
)

var (
	// workDirFlag overrides the working directory holding .tracekg/
	workDirFlag string
	// backendFlag overrides the configured store backend
	backendFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tracekg",
	Short: "tracekg - requirement-to-code traceability graphs",
	Long: `tracekg builds a property graph out of diagram-markup artifacts and
source-level trace annotations, then answers traceability questions over it:
which code implements a use case, which requirements a file realizes, and
what a requirement change impacts.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("tracekg version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&workDirFlag, "workdir", "",
		"Working directory containing .tracekg/ (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "",
		"Store backend: neo4j, sqlite, or memory (default: from config)")
}
