package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tracekg/internal/graph"
	"tracekg/internal/manifest"
	"tracekg/internal/markup"
	"tracekg/internal/model"
)

var (
	buildFormat   string
	buildStage    string
	buildClear    bool
	buildKind     string
	buildManifest string
)

var buildCmd = &cobra.Command{
	Use:   "build [files or globs...]",
	Short: "Parse artifact files into the traceability graph",
	Long: `Parse diagram-markup artifact files and upsert the discovered use cases,
classes, and relationships into the graph.

Inputs are file paths or glob patterns, or a manifest declaring them.
Malformed lines are reported as warnings and never abort the run.

Examples:
  tracekg build docs/diagrams/*.puml
  tracekg build --stage=requirement docs/use-cases.puml
  tracekg build --manifest ARTIFACTS.toml
  tracekg build --clear docs/**.puml   # rebuild from scratch`,
	Run: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildFormat, "format", "human", "Output format (json, human)")
	buildCmd.Flags().StringVar(&buildStage, "stage", "design", "Processing stage (requirement, design)")
	buildCmd.Flags().BoolVar(&buildClear, "clear", false, "Clear the graph before applying")
	buildCmd.Flags().StringVar(&buildKind, "kind", "", "Force a diagram kind instead of detecting it")
	buildCmd.Flags().StringVar(&buildManifest, "manifest", "", "Artifact manifest (.toml, .yaml)")
	rootCmd.AddCommand(buildCmd)
}

// ArtifactReportCLI is one parsed artifact in the build output.
type ArtifactReportCLI struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}

// BuildResponseCLI is the build command output.
type BuildResponseCLI struct {
	Stage     string              `json:"stage"`
	Mode      string              `json:"mode"`
	Artifacts []ArtifactReportCLI `json:"artifacts"`
	Summary   RunSummary          `json:"summary"`
}

func runBuild(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(buildFormat)

	stage := model.Stage(buildStage)
	if stage != model.StageRequirement && stage != model.StageDesign {
		fmt.Fprintf(os.Stderr, "Error: unknown stage %q (want requirement or design)\n", buildStage)
		os.Exit(1)
	}

	forcedKind := markup.KindAuto
	if buildKind != "" {
		var ok bool
		if forcedKind, ok = markup.ParseKind(buildKind); !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown kind %q\n", buildKind)
			os.Exit(1)
		}
	}

	artifacts, err := collectArtifacts(args, stage, forcedKind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(artifacts) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no artifact files given (pass files, globs, or --manifest)")
		os.Exit(1)
	}

	workDir := mustGetWorkDir()
	cfg := loadConfig(workDir, logger)
	ctx := newContext()
	st := mustOpenStore(ctx, workDir, cfg, logger)
	defer st.Close(ctx)

	parser := markup.NewParser()
	combined := model.NewBatch()
	response := &BuildResponseCLI{
		Stage:   string(stage),
		Mode:    string(graph.ModeMerge),
		Summary: RunSummary{RunID: newRunID()},
	}
	if buildClear {
		response.Mode = string(graph.ModeRebuild)
	}

	for _, a := range artifacts {
		raw, err := os.ReadFile(a.Path)
		if err != nil {
			combined.Warn(model.WarnUnrecognizedLine, a.Path, 0, "unreadable artifact: "+err.Error())
			continue
		}
		text := string(raw)

		// Markdown artifacts carry their diagrams in fenced blocks.
		if strings.HasSuffix(strings.ToLower(a.Path), ".md") {
			text = strings.Join(markup.ExtractFences(text), "\n")
		}

		kind := a.Kind
		if kind == markup.KindAuto {
			kind = markup.DetectKind(a.Path, text)
		}

		batch := parser.Parse(a.Path, text, kind, a.Stage)
		response.Artifacts = append(response.Artifacts, ArtifactReportCLI{
			Path:  a.Path,
			Kind:  string(kind),
			Nodes: len(batch.Nodes),
			Edges: len(batch.Edges),
		})
		combined.Merge(batch)
	}

	mode := graph.ModeMerge
	if buildClear {
		mode = graph.ModeRebuild
	}
	result, err := graph.NewBuilder(st, logger).Apply(ctx, combined, mode)
	if err != nil {
		response.Summary.Fatal = err.Error()
		response.Summary.Warnings = combined.Warnings
		response.Summary.DurationMs = time.Since(start).Milliseconds()
		printResponse(response, buildFormat)
		os.Exit(1)
	}

	response.Summary.Committed = CommitStats{
		NodesCreated: result.NodesCreated,
		NodesUpdated: result.NodesUpdated,
		EdgesCreated: result.EdgesCreated,
		EdgesUpdated: result.EdgesUpdated,
	}
	response.Summary.Warnings = result.Warnings
	response.Summary.DurationMs = time.Since(start).Milliseconds()

	printResponse(response, buildFormat)
}

// collectArtifacts resolves positional file/glob arguments and the optional
// manifest into one artifact list.
func collectArtifacts(args []string, stage model.Stage, kind markup.Kind) ([]manifest.Artifact, error) {
	var out []manifest.Artifact

	if buildManifest != "" {
		m, err := manifest.Load(buildManifest)
		if err != nil {
			return nil, err
		}
		resolved, err := m.Resolve(stage)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		sort.Strings(matches)
		for _, path := range matches {
			out = append(out, manifest.Artifact{Path: path, Kind: kind, Stage: stage})
		}
	}
	return out, nil
}
