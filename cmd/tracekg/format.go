package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *BuildResponseCLI:
		return formatBuildHuman(v), nil
	case *TraceResponseCLI:
		return formatTraceHuman(v), nil
	case *ForwardResponseCLI:
		return formatForwardHuman(v), nil
	case *BackwardResponseCLI:
		return formatBackwardHuman(v), nil
	case *ImpactResponseCLI:
		return formatImpactHuman(v), nil
	case *VerifyResponseCLI:
		return formatVerifyHuman(v), nil
	case *StatusResponseCLI:
		return formatStatusHuman(v), nil
	case *ExportResponseCLI:
		return formatExportHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatBuildHuman(r *BuildResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build complete (%s mode, stage %s)\n", r.Mode, r.Stage)
	fmt.Fprintf(&b, "  Artifacts parsed: %d\n", len(r.Artifacts))
	for _, a := range r.Artifacts {
		fmt.Fprintf(&b, "    %s (%s): %d nodes, %d edges\n", a.Path, a.Kind, a.Nodes, a.Edges)
	}
	writeSummaryHuman(&b, &r.Summary)
	return strings.TrimRight(b.String(), "\n")
}

func formatTraceHuman(r *TraceResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanned %s\n", r.CodeRoot)

	if len(r.Forward) > 0 {
		b.WriteString("\nUse case -> implementation:\n")
		for _, f := range r.Forward {
			fmt.Fprintf(&b, "  %s\n", f.UseCase)
			if len(f.Classes) == 0 {
				b.WriteString("    (no traced classes)\n")
				continue
			}
			fmt.Fprintf(&b, "    classes: %s\n", strings.Join(f.Classes, ", "))
			if len(f.CodeFiles) > 0 {
				fmt.Fprintf(&b, "    files:   %s\n", strings.Join(f.CodeFiles, ", "))
			}
		}
	}
	if len(r.Backward) > 0 {
		b.WriteString("\nCode file -> requirements:\n")
		for _, back := range r.Backward {
			fmt.Fprintf(&b, "  %s\n", back.CodeFile)
			if len(back.UseCases) > 0 {
				fmt.Fprintf(&b, "    use cases: %s\n", strings.Join(back.UseCases, ", "))
			}
		}
	}
	writeSummaryHuman(&b, &r.Summary)
	return strings.TrimRight(b.String(), "\n")
}

func formatForwardHuman(r *ForwardResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Use case %s\n", r.UseCase)
	if len(r.Classes) == 0 {
		b.WriteString("  No traced classes.\n")
		return strings.TrimRight(b.String(), "\n")
	}
	fmt.Fprintf(&b, "  Classes:    %s\n", strings.Join(r.Classes, ", "))
	if len(r.CodeFiles) > 0 {
		fmt.Fprintf(&b, "  Code files: %s\n", strings.Join(r.CodeFiles, ", "))
	} else {
		b.WriteString("  Code files: (none)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBackwardHuman(r *BackwardResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Code file %s\n", r.CodeFile)
	if len(r.Classes) == 0 {
		b.WriteString("  No implemented classes.\n")
		return strings.TrimRight(b.String(), "\n")
	}
	fmt.Fprintf(&b, "  Classes:   %s\n", strings.Join(r.Classes, ", "))
	if len(r.UseCases) > 0 {
		fmt.Fprintf(&b, "  Use cases: %s\n", strings.Join(r.UseCases, ", "))
	} else {
		b.WriteString("  Use cases: (none)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatImpactHuman(r *ImpactResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Impact of a change to %s: %d node(s)\n", r.UseCase, len(r.Affected))
	for _, a := range r.Affected {
		fmt.Fprintf(&b, "  %-10s %s\n", a.Label, a.Key)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatVerifyHuman(r *VerifyResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Graph: %d use cases, %d classes, %d code files\n",
		r.UseCases, r.Classes, r.CodeFiles)
	fmt.Fprintf(&b, "Complete chains: %d\n", r.CompleteChainCount)

	if len(r.Dangling) > 0 {
		fmt.Fprintf(&b, "\nDANGLING REFERENCES (%d) - likely a parsing or naming bug:\n", len(r.Dangling))
		for _, d := range r.Dangling {
			fmt.Fprintf(&b, "  %s %s:%s -> %s:%s references undefined %s:%s\n",
				d.Edge.Type, d.Edge.SrcLabel, d.Edge.SrcKey,
				d.Edge.DstLabel, d.Edge.DstKey, d.Missing.Label, d.Missing.Key)
		}
	}
	if len(r.UntracedUseCases) > 0 {
		fmt.Fprintf(&b, "\nUse cases with no traced class (%d):\n", len(r.UntracedUseCases))
		for _, uc := range r.UntracedUseCases {
			fmt.Fprintf(&b, "  %s\n", uc)
		}
	}
	if len(r.UnimplementedClasses) > 0 {
		fmt.Fprintf(&b, "\nClasses with no implementing file (%d):\n", len(r.UnimplementedClasses))
		for _, c := range r.UnimplementedClasses {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}
	if r.Clean {
		b.WriteString("\nAll chains intact.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatusHuman(r *StatusResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tracekg %s\n", r.Version)
	fmt.Fprintf(&b, "  Workdir: %s\n", r.WorkDir)
	fmt.Fprintf(&b, "  Backend: %s\n", r.Backend)
	b.WriteString("  Nodes:\n")
	for _, row := range r.Nodes {
		fmt.Fprintf(&b, "    %-10s %d\n", row.Kind, row.Count)
	}
	b.WriteString("  Edges:\n")
	for _, row := range r.Edges {
		fmt.Fprintf(&b, "    %-12s %d\n", row.Kind, row.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatExportHuman(r *ExportResponseCLI) string {
	return fmt.Sprintf("Exported %d nodes and %d edges to %s (%d bytes)",
		r.Nodes, r.Edges, r.Path, r.Bytes)
}

func writeSummaryHuman(b *strings.Builder, s *RunSummary) {
	fmt.Fprintf(b, "\nCommitted: %d nodes created, %d updated; %d edges created, %d updated\n",
		s.Committed.NodesCreated, s.Committed.NodesUpdated,
		s.Committed.EdgesCreated, s.Committed.EdgesUpdated)
	if len(s.Warnings) > 0 {
		fmt.Fprintf(b, "Warnings (%d):\n", len(s.Warnings))
		for _, w := range s.Warnings {
			fmt.Fprintf(b, "  %s\n", w.String())
		}
	} else {
		b.WriteString("Warnings: none\n")
	}
	if s.Fatal != "" {
		fmt.Fprintf(b, "FATAL: %s\n", s.Fatal)
	}
	fmt.Fprintf(b, "Run %s finished in %dms\n", s.RunID, s.DurationMs)
}
