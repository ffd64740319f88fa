package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracekg/internal/trace"
)

var forwardFormat string

var forwardCmd = &cobra.Command{
	Use:   "forward <use-case-id>",
	Short: "Resolve a use case to its classes and code files",
	Long: `Resolve a use case forward through the graph: the classes traced to it
and the code files implementing those classes. Any accepted identifier
spelling works (UC-02, UC02, uc2).

Examples:
  tracekg forward UC-02
  tracekg forward --format=json UC02`,
	Args: cobra.ExactArgs(1),
	Run:  runForward,
}

func init() {
	forwardCmd.Flags().StringVar(&forwardFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(forwardCmd)
}

// ForwardResponseCLI is the forward command output.
type ForwardResponseCLI struct {
	UseCase   string   `json:"useCase"`
	Classes   []string `json:"classes"`
	CodeFiles []string `json:"codeFiles"`
}

func runForward(cmd *cobra.Command, args []string) {
	logger := newLogger(forwardFormat)
	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	result, err := trace.NewLinker(st, logger).Forward(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printResponse(&ForwardResponseCLI{
		UseCase:   result.UseCase,
		Classes:   result.Classes,
		CodeFiles: result.CodeFiles,
	}, forwardFormat)
}
