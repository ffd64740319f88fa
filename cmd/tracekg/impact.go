package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracekg/internal/trace"
)

var impactFormat string

var impactCmd = &cobra.Command{
	Use:   "impact <use-case-id>",
	Short: "Compute the change-impact set of a use case",
	Long: `Compute everything potentially affected by a change to a use case:
the closure over trace, dependency, and inheritance edges starting from the
classes traced to it. Dependency edges are followed in both directions,
since change ripples both ways across a dependency.

Examples:
  tracekg impact UC-02
  tracekg impact --format=json UC02`,
	Args: cobra.ExactArgs(1),
	Run:  runImpact,
}

func init() {
	impactCmd.Flags().StringVar(&impactFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(impactCmd)
}

// AffectedCLI is one node in an impact set.
type AffectedCLI struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// ImpactResponseCLI is the impact command output.
type ImpactResponseCLI struct {
	UseCase  string        `json:"useCase"`
	Affected []AffectedCLI `json:"affected"`
}

func runImpact(cmd *cobra.Command, args []string) {
	logger := newLogger(impactFormat)
	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	result, err := trace.NewLinker(st, logger).Impact(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	response := &ImpactResponseCLI{UseCase: result.UseCase}
	for _, ref := range result.Affected {
		response.Affected = append(response.Affected, AffectedCLI{
			Label: string(ref.Label),
			Key:   ref.Key,
		})
	}
	printResponse(response, impactFormat)
}
