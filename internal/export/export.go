// Package export writes and reads zstd-compressed JSON snapshots of the
// graph, for archiving a build or moving it between store backends.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"tracekg/internal/model"
	"tracekg/internal/store"
	"tracekg/internal/version"
)

var allLabels = []model.Label{
	model.LabelUseCase,
	model.LabelClass,
	model.LabelInterface,
	model.LabelComponent,
	model.LabelOperation,
	model.LabelCodeFile,
}

var allEdgeTypes = []model.EdgeType{
	model.EdgeTrace,
	model.EdgeDependsOn,
	model.EdgeInherits,
	model.EdgePartOf,
	model.EdgeImplements,
}

// Snapshot is the complete serialized graph.
type Snapshot struct {
	Version     string       `json:"version"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Nodes       []model.Node `json:"nodes"`
	Edges       []model.Edge `json:"edges"`
}

// Write serializes the store's contents to w as zstd-compressed JSON.
func Write(ctx context.Context, st store.Store, w io.Writer) (*Snapshot, error) {
	snap := &Snapshot{
		Version:     version.Version,
		GeneratedAt: time.Now().UTC(),
	}

	for _, label := range allLabels {
		nodes, err := st.NodesByLabel(ctx, label)
		if err != nil {
			return nil, err
		}
		snap.Nodes = append(snap.Nodes, nodes...)
	}
	for _, t := range allEdgeTypes {
		edges, err := st.EdgesByType(ctx, t)
		if err != nil {
			return nil, err
		}
		snap.Edges = append(snap.Edges, edges...)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("flushing snapshot: %w", err)
	}
	return snap, nil
}

// WriteFile writes a snapshot to the given path.
func WriteFile(ctx context.Context, st store.Store, path string) (*Snapshot, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	snap, err := Write(ctx, st, f)
	if err != nil {
		return nil, err
	}
	return snap, f.Close()
}

// Read decodes a snapshot from zstd-compressed JSON.
func Read(r io.Reader) (*Snapshot, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Restore loads a snapshot into a store. Existing contents are preserved;
// clear first for an exact copy.
func Restore(ctx context.Context, st store.Store, snap *Snapshot) error {
	for _, n := range snap.Nodes {
		if _, err := st.UpsertNode(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range snap.Edges {
		if _, err := st.UpsertEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
