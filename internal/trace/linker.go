// Package trace runs traceability queries against a populated graph:
// forward and backward traversal between requirements and code, impact
// closure over structural dependencies, and whole-chain verification.
package trace

import (
	"context"
	"path/filepath"
	"sort"

	"tracekg/internal/ident"
	"tracekg/internal/logging"
	"tracekg/internal/model"
	"tracekg/internal/store"
)

// Linker issues read queries against a store.
type Linker struct {
	store  store.Store
	logger *logging.Logger
}

// NewLinker creates a linker over the given store.
func NewLinker(st store.Store, logger *logging.Logger) *Linker {
	return &Linker{store: st, logger: logger}
}

// ForwardResult lists what implements a use case.
type ForwardResult struct {
	UseCase   string   `json:"useCase"`
	Classes   []string `json:"classes"`
	CodeFiles []string `json:"codeFiles"`
}

// Forward resolves a use case to the classes traced to it and the code
// files implementing those classes. The input id may be any accepted
// spelling; it is normalized first.
func (l *Linker) Forward(ctx context.Context, useCaseID string) (*ForwardResult, error) {
	id, err := ident.Normalize(useCaseID)
	if err != nil {
		return nil, err
	}

	result := &ForwardResult{UseCase: id}

	incoming, err := l.store.EdgesTo(ctx, model.LabelUseCase, id)
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	for _, e := range incoming {
		if e.Type != model.EdgeTrace || e.SrcLabel != model.LabelClass {
			continue
		}
		result.Classes = append(result.Classes, e.SrcKey)

		implementing, err := l.store.EdgesTo(ctx, model.LabelClass, e.SrcKey)
		if err != nil {
			return nil, err
		}
		for _, impl := range implementing {
			if impl.Type == model.EdgeImplements && impl.SrcLabel == model.LabelCodeFile {
				files[impl.SrcKey] = true
			}
		}
	}

	sort.Strings(result.Classes)
	result.CodeFiles = sortedKeys(files)
	return result, nil
}

// BackwardResult lists what a code file realizes.
type BackwardResult struct {
	CodeFile string   `json:"codeFile"`
	Classes  []string `json:"classes"`
	UseCases []string `json:"useCases"`
}

// Backward resolves a code file to the classes it implements and the use
// cases those classes trace to. The path is matched in its canonical
// slash-separated form.
func (l *Linker) Backward(ctx context.Context, path string) (*BackwardResult, error) {
	key := filepath.ToSlash(path)
	result := &BackwardResult{CodeFile: key}

	outgoing, err := l.store.EdgesFrom(ctx, model.LabelCodeFile, key)
	if err != nil {
		return nil, err
	}

	useCases := make(map[string]bool)
	for _, e := range outgoing {
		if e.Type != model.EdgeImplements || e.DstLabel != model.LabelClass {
			continue
		}
		result.Classes = append(result.Classes, e.DstKey)

		traced, err := l.store.EdgesFrom(ctx, model.LabelClass, e.DstKey)
		if err != nil {
			return nil, err
		}
		for _, t := range traced {
			if t.Type == model.EdgeTrace && t.DstLabel == model.LabelUseCase {
				useCases[t.DstKey] = true
			}
		}
	}

	sort.Strings(result.Classes)
	result.UseCases = sortedKeys(useCases)
	return result, nil
}

// ImpactResult is the set of nodes potentially affected by a change to a
// use case.
type ImpactResult struct {
	UseCase  string          `json:"useCase"`
	Affected []model.NodeRef `json:"affected"`
}

// impactEdgeTypes are the edge types the impact closure follows. Edges are
// followed in both directions: change can ripple from either side of a
// dependency to the other.
var impactEdgeTypes = map[model.EdgeType]bool{
	model.EdgeTrace:     true,
	model.EdgeDependsOn: true,
	model.EdgeInherits:  true,
}

// Impact computes the closure over trace and structural-dependency edges
// starting from the classes traced to the given use case.
func (l *Linker) Impact(ctx context.Context, useCaseID string) (*ImpactResult, error) {
	id, err := ident.Normalize(useCaseID)
	if err != nil {
		return nil, err
	}

	seen := make(map[model.NodeRef]bool)
	var queue []model.NodeRef

	incoming, err := l.store.EdgesTo(ctx, model.LabelUseCase, id)
	if err != nil {
		return nil, err
	}
	for _, e := range incoming {
		if e.Type == model.EdgeTrace && e.SrcLabel == model.LabelClass {
			ref := model.NodeRef{Label: e.SrcLabel, Key: e.SrcKey}
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors, err := l.neighbors(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, ref := range neighbors {
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}

	result := &ImpactResult{UseCase: id}
	for ref := range seen {
		result.Affected = append(result.Affected, ref)
	}
	sort.Slice(result.Affected, func(i, j int) bool {
		a, b := result.Affected[i], result.Affected[j]
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Key < b.Key
	})
	return result, nil
}

func (l *Linker) neighbors(ctx context.Context, ref model.NodeRef) ([]model.NodeRef, error) {
	var out []model.NodeRef

	outgoing, err := l.store.EdgesFrom(ctx, ref.Label, ref.Key)
	if err != nil {
		return nil, err
	}
	for _, e := range outgoing {
		if impactEdgeTypes[e.Type] {
			out = append(out, model.NodeRef{Label: e.DstLabel, Key: e.DstKey})
		}
	}

	incoming, err := l.store.EdgesTo(ctx, ref.Label, ref.Key)
	if err != nil {
		return nil, err
	}
	for _, e := range incoming {
		if impactEdgeTypes[e.Type] {
			out = append(out, model.NodeRef{Label: e.SrcLabel, Key: e.SrcKey})
		}
	}
	return out, nil
}

// ForwardAll runs Forward for every defined use case, ordered by id.
func (l *Linker) ForwardAll(ctx context.Context) ([]ForwardResult, error) {
	useCases, err := l.store.NodesByLabel(ctx, model.LabelUseCase)
	if err != nil {
		return nil, err
	}

	out := make([]ForwardResult, 0, len(useCases))
	for _, uc := range useCases {
		r, err := l.Forward(ctx, uc.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// BackwardAll runs Backward for every known code file, ordered by path.
func (l *Linker) BackwardAll(ctx context.Context) ([]BackwardResult, error) {
	files, err := l.store.NodesByLabel(ctx, model.LabelCodeFile)
	if err != nil {
		return nil, err
	}

	out := make([]BackwardResult, 0, len(files))
	for _, f := range files {
		r, err := l.Backward(ctx, f.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
