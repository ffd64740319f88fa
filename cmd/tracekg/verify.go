package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracekg/internal/trace"
)

var (
	verifyFormat string
	verifyStrict bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify requirement-to-code chains",
	Long: `Inspect every traceability chain in the graph and report what is
broken or incomplete: use cases no class traces to, classes no file
implements, and edges referencing nodes nothing ever defined.

Findings are warnings and do not affect the exit code unless --strict
is set.

Examples:
  tracekg verify
  tracekg verify --strict --format=json`,
	Run: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "human", "Output format (json, human)")
	verifyCmd.Flags().BoolVar(&verifyStrict, "strict", false, "Exit non-zero when any chain is broken")
	rootCmd.AddCommand(verifyCmd)
}

// VerifyResponseCLI is the verify command output.
type VerifyResponseCLI struct {
	UseCases  int `json:"useCases"`
	Classes   int `json:"classes"`
	CodeFiles int `json:"codeFiles"`

	UntracedUseCases     []string         `json:"untracedUseCases,omitempty"`
	UnimplementedClasses []string         `json:"unimplementedClasses,omitempty"`
	Dangling             []trace.Dangling `json:"dangling,omitempty"`
	CompleteChains       []trace.Chain    `json:"completeChains,omitempty"`
	CompleteChainCount   int              `json:"completeChainCount"`
	Clean                bool             `json:"clean"`
}

func runVerify(cmd *cobra.Command, args []string) {
	logger := newLogger(verifyFormat)
	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	report, err := trace.NewLinker(st, logger).VerifyChain(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printResponse(&VerifyResponseCLI{
		UseCases:             report.UseCases,
		Classes:              report.Classes,
		CodeFiles:            report.CodeFiles,
		UntracedUseCases:     report.UntracedUseCases,
		UnimplementedClasses: report.UnimplementedClasses,
		Dangling:             report.Dangling,
		CompleteChains:       report.CompleteChains,
		CompleteChainCount:   report.CompleteChainCount,
		Clean:                report.Clean(),
	}, verifyFormat)

	if verifyStrict && !report.Clean() {
		os.Exit(1)
	}
}
