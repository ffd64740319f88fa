package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracekg/internal/trace"
)

var backwardFormat string

var backwardCmd = &cobra.Command{
	Use:   "backward <code-file>",
	Short: "Resolve a code file to its classes and use cases",
	Long: `Resolve a code file backward through the graph: the classes it
implements and the use cases those classes trace to. The path must match
the scan-relative form recorded in the graph.

Examples:
  tracekg backward app/auth/controller.py
  tracekg backward --format=json app/auth/controller.py`,
	Args: cobra.ExactArgs(1),
	Run:  runBackward,
}

func init() {
	backwardCmd.Flags().StringVar(&backwardFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(backwardCmd)
}

// BackwardResponseCLI is the backward command output.
type BackwardResponseCLI struct {
	CodeFile string   `json:"codeFile"`
	Classes  []string `json:"classes"`
	UseCases []string `json:"useCases"`
}

func runBackward(cmd *cobra.Command, args []string) {
	logger := newLogger(backwardFormat)
	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	result, err := trace.NewLinker(st, logger).Backward(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printResponse(&BackwardResponseCLI{
		CodeFile: result.CodeFile,
		Classes:  result.Classes,
		UseCases: result.UseCases,
	}, backwardFormat)
}
