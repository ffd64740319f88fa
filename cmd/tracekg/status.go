package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"tracekg/internal/version"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store contents and configuration",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

// CountCLI is one label or edge-type count row.
type CountCLI struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// StatusResponseCLI is the status command output.
type StatusResponseCLI struct {
	Version string     `json:"version"`
	WorkDir string     `json:"workDir"`
	Backend string     `json:"backend"`
	Nodes   []CountCLI `json:"nodes"`
	Edges   []CountCLI `json:"edges"`
}

func runStatus(cmd *cobra.Command, args []string) {
	logger := newLogger(statusFormat)
	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	stats, err := st.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	response := &StatusResponseCLI{
		Version: version.Version,
		WorkDir: workDir,
		Backend: cfg.Store.Backend,
	}
	for label, n := range stats.Nodes {
		response.Nodes = append(response.Nodes, CountCLI{Kind: string(label), Count: n})
	}
	for typ, n := range stats.Edges {
		response.Edges = append(response.Edges, CountCLI{Kind: string(typ), Count: n})
	}
	sort.Slice(response.Nodes, func(i, j int) bool { return response.Nodes[i].Kind < response.Nodes[j].Kind })
	sort.Slice(response.Edges, func(i, j int) bool { return response.Edges[i].Kind < response.Edges[j].Kind })

	printResponse(response, statusFormat)
}
