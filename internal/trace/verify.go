package trace

import (
	"context"
	"sort"

	"tracekg/internal/model"
)

// maxChainSamples caps the complete-chain examples in a verify report.
const maxChainSamples = 25

// Chain is one complete requirement-to-code path.
type Chain struct {
	UseCase  string `json:"useCase"`
	Class    string `json:"class"`
	CodeFile string `json:"codeFile"`
}

// Dangling is an edge endpoint nothing ever defined. It usually means an
// artifact references an identifier that no diagram declares, or a scan
// and build disagree on a name.
type Dangling struct {
	Edge    model.Edge    `json:"edge"`
	Missing model.NodeRef `json:"missing"`
}

// VerifyReport summarizes the health of the traceability chains.
type VerifyReport struct {
	UseCases  int `json:"useCases"`
	Classes   int `json:"classes"`
	CodeFiles int `json:"codeFiles"`

	UntracedUseCases     []string   `json:"untracedUseCases,omitempty"`
	UnimplementedClasses []string   `json:"unimplementedClasses,omitempty"`
	Dangling             []Dangling `json:"dangling,omitempty"`
	CompleteChains       []Chain    `json:"completeChains,omitempty"`
	CompleteChainCount   int        `json:"completeChainCount"`
}

// Clean reports whether every chain is intact.
func (r *VerifyReport) Clean() bool {
	return len(r.UntracedUseCases) == 0 &&
		len(r.UnimplementedClasses) == 0 &&
		len(r.Dangling) == 0
}

// VerifyChain inspects every use case, class, and trace/implements edge
// and reports incomplete or broken chains.
func (l *Linker) VerifyChain(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	useCases, err := l.store.NodesByLabel(ctx, model.LabelUseCase)
	if err != nil {
		return nil, err
	}
	report.UseCases = len(useCases)

	for _, uc := range useCases {
		incoming, err := l.store.EdgesTo(ctx, model.LabelUseCase, uc.Key)
		if err != nil {
			return nil, err
		}
		if !hasEdge(incoming, model.EdgeTrace) {
			report.UntracedUseCases = append(report.UntracedUseCases, uc.Key)
		}
	}

	classes, err := l.store.NodesByLabel(ctx, model.LabelClass)
	if err != nil {
		return nil, err
	}
	report.Classes = len(classes)

	for _, class := range classes {
		incoming, err := l.store.EdgesTo(ctx, model.LabelClass, class.Key)
		if err != nil {
			return nil, err
		}
		outgoing, err := l.store.EdgesFrom(ctx, model.LabelClass, class.Key)
		if err != nil {
			return nil, err
		}

		var files []string
		for _, e := range incoming {
			if e.Type == model.EdgeImplements && e.SrcLabel == model.LabelCodeFile {
				files = append(files, e.SrcKey)
			}
		}
		if len(files) == 0 {
			report.UnimplementedClasses = append(report.UnimplementedClasses, class.Key)
			continue
		}

		for _, e := range outgoing {
			if e.Type != model.EdgeTrace || e.DstLabel != model.LabelUseCase {
				continue
			}
			for _, file := range files {
				report.CompleteChainCount++
				if len(report.CompleteChains) < maxChainSamples {
					report.CompleteChains = append(report.CompleteChains, Chain{
						UseCase: e.DstKey, Class: class.Key, CodeFile: file,
					})
				}
			}
		}
	}

	codeFiles, err := l.store.NodesByLabel(ctx, model.LabelCodeFile)
	if err != nil {
		return nil, err
	}
	report.CodeFiles = len(codeFiles)

	for _, t := range []model.EdgeType{model.EdgeTrace, model.EdgeImplements} {
		edges, err := l.store.EdgesByType(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if missing, err := l.missingEndpoint(ctx, e); err != nil {
				return nil, err
			} else if missing != nil {
				report.Dangling = append(report.Dangling, Dangling{Edge: e, Missing: *missing})
			}
		}
	}

	sort.Strings(report.UntracedUseCases)
	sort.Strings(report.UnimplementedClasses)
	sort.Slice(report.CompleteChains, func(i, j int) bool {
		a, b := report.CompleteChains[i], report.CompleteChains[j]
		if a.UseCase != b.UseCase {
			return a.UseCase < b.UseCase
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.CodeFile < b.CodeFile
	})

	l.logger.Info("chain verification complete", map[string]interface{}{
		"use_cases":   report.UseCases,
		"classes":     report.Classes,
		"code_files":  report.CodeFiles,
		"untraced":    len(report.UntracedUseCases),
		"unimplement": len(report.UnimplementedClasses),
		"dangling":    len(report.Dangling),
		"chains":      report.CompleteChainCount,
	})
	return report, nil
}

func (l *Linker) missingEndpoint(ctx context.Context, e model.Edge) (*model.NodeRef, error) {
	ok, err := l.store.NodeExists(ctx, e.SrcLabel, e.SrcKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.NodeRef{Label: e.SrcLabel, Key: e.SrcKey}, nil
	}

	ok, err = l.store.NodeExists(ctx, e.DstLabel, e.DstKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.NodeRef{Label: e.DstLabel, Key: e.DstKey}, nil
	}
	return nil, nil
}

func hasEdge(edges []model.Edge, t model.EdgeType) bool {
	for _, e := range edges {
		if e.Type == t {
			return true
		}
	}
	return false
}
