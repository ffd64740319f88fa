package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"tracekg/internal/model"
	"tracekg/internal/store"
)

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	nodes := []model.Node{
		{Label: model.LabelUseCase, Key: "UC01", Props: map[string]interface{}{"name": "Browse"}},
		{Label: model.LabelClass, Key: "Catalog"},
		{Label: model.LabelCodeFile, Key: "catalog.py"},
	}
	edges := []model.Edge{
		{Type: model.EdgeTrace, SrcLabel: model.LabelClass, SrcKey: "Catalog", DstLabel: model.LabelUseCase, DstKey: "UC01"},
		{Type: model.EdgeImplements, SrcLabel: model.LabelCodeFile, SrcKey: "catalog.py", DstLabel: model.LabelClass, DstKey: "Catalog"},
	}
	for _, n := range nodes {
		if _, err := st.UpsertNode(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range edges {
		if _, err := st.UpsertEdge(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)

	var buf bytes.Buffer
	written, err := Write(ctx, st, &buf)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(written.Nodes) != 3 || len(written.Edges) != 2 {
		t.Errorf("snapshot holds %d nodes / %d edges, want 3 / 2",
			len(written.Nodes), len(written.Edges))
	}

	snap, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(snap.Nodes) != 3 || len(snap.Edges) != 2 {
		t.Errorf("decoded %d nodes / %d edges, want 3 / 2", len(snap.Nodes), len(snap.Edges))
	}
	if snap.Version == "" {
		t.Error("snapshot should record the producing version")
	}
}

func TestRestoreIntoEmptyStore(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	if _, err := Write(ctx, seedStore(t), &buf); err != nil {
		t.Fatal(err)
	}
	snap, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	target := store.NewMemory()
	if err := Restore(ctx, target, snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	stats, _ := target.Stats(ctx)
	nodes, edges := stats.Total()
	if nodes != 3 || edges != 2 {
		t.Errorf("restored %d nodes / %d edges, want 3 / 2", nodes, edges)
	}
	n, _ := target.Node(ctx, model.LabelUseCase, "UC01")
	if n == nil || n.Props["name"] != "Browse" {
		t.Errorf("props must survive the round trip: %v", n)
	}
}

func TestWriteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.json.zst")

	if _, err := WriteFile(ctx, seedStore(t), path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	snap, err := Read(f)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(snap.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(snap.Nodes))
	}
}
