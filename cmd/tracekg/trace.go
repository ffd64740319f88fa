package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tracekg/internal/graph"
	"tracekg/internal/scanner"
	"tracekg/internal/trace"
)

var (
	traceFormat    string
	traceDirection string
)

var traceCmd = &cobra.Command{
	Use:   "trace <code-root>",
	Short: "Scan a source tree and report the trace matrix",
	Long: `Walk a source tree, extract class declarations and their trace
annotations, upsert them into the graph, and report traceability in the
requested direction.

Examples:
  tracekg trace ./src
  tracekg trace --direction=forward ./src
  tracekg trace --direction=both --format=json ./src`,
	Args: cobra.ExactArgs(1),
	Run:  runTraceCmd,
}

func init() {
	traceCmd.Flags().StringVar(&traceFormat, "format", "human", "Output format (json, human)")
	traceCmd.Flags().StringVar(&traceDirection, "direction", "both",
		"Traversal direction (forward, backward, both)")
	rootCmd.AddCommand(traceCmd)
}

// TraceResponseCLI is the trace command output.
type TraceResponseCLI struct {
	CodeRoot  string                 `json:"codeRoot"`
	Direction string                 `json:"direction"`
	Forward   []trace.ForwardResult  `json:"forward,omitempty"`
	Backward  []trace.BackwardResult `json:"backward,omitempty"`
	Summary   RunSummary             `json:"summary"`
}

func runTraceCmd(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(traceFormat)
	codeRoot := args[0]

	switch traceDirection {
	case "forward", "backward", "both":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown direction %q (want forward, backward, or both)\n", traceDirection)
		os.Exit(1)
	}

	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	response := &TraceResponseCLI{
		CodeRoot:  codeRoot,
		Direction: traceDirection,
		Summary:   RunSummary{RunID: newRunID()},
	}

	batch, err := scanner.NewScanner(cfg.Scan, logger).Scan(ctx, codeRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", codeRoot, err)
		os.Exit(1)
	}

	result, err := graph.NewBuilder(st, logger).Apply(ctx, batch, graph.ModeMerge)
	if err != nil {
		response.Summary.Fatal = err.Error()
		response.Summary.Warnings = batch.Warnings
		response.Summary.DurationMs = time.Since(start).Milliseconds()
		printResponse(response, traceFormat)
		os.Exit(1)
	}
	response.Summary.Committed = CommitStats{
		NodesCreated: result.NodesCreated,
		NodesUpdated: result.NodesUpdated,
		EdgesCreated: result.EdgesCreated,
		EdgesUpdated: result.EdgesUpdated,
	}
	response.Summary.Warnings = result.Warnings

	linker := trace.NewLinker(st, logger)
	if traceDirection == "forward" || traceDirection == "both" {
		forward, err := linker.ForwardAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving forward traces: %v\n", err)
			os.Exit(1)
		}
		response.Forward = forward
	}
	if traceDirection == "backward" || traceDirection == "both" {
		backward, err := linker.BackwardAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving backward traces: %v\n", err)
			os.Exit(1)
		}
		response.Backward = backward
	}

	response.Summary.DurationMs = time.Since(start).Milliseconds()
	printResponse(response, traceFormat)
}
