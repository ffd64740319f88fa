package store

import (
	"context"
	"testing"

	"tracekg/internal/model"
)

func TestMemoryUpsertNodeIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.UpsertNode(ctx, model.Node{
		Label: model.LabelUseCase, Key: "UC01",
		Props: map[string]interface{}{"name": "Browse Catalog"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first upsert should create")
	}

	created, err = m.UpsertNode(ctx, model.Node{
		Label: model.LabelUseCase, Key: "UC01",
		Props: map[string]interface{}{"stage": "requirement"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second upsert should update, not create")
	}

	n, err := m.Node(ctx, model.LabelUseCase, "UC01")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil {
		t.Fatal("node missing after upsert")
	}
	if n.Props["name"] != "Browse Catalog" || n.Props["stage"] != "requirement" {
		t.Errorf("props should merge, got %v", n.Props)
	}

	stats, _ := m.Stats(ctx)
	if stats.Nodes[model.LabelUseCase] != 1 {
		t.Errorf("node count = %d, want 1", stats.Nodes[model.LabelUseCase])
	}
}

func TestMemoryUpsertEdgeIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	e := model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "AuthController",
		DstLabel: model.LabelUseCase, DstKey: "UC02",
	}
	if created, _ := m.UpsertEdge(ctx, e); !created {
		t.Error("first edge upsert should create")
	}
	if created, _ := m.UpsertEdge(ctx, e); created {
		t.Error("duplicate edge upsert should not create")
	}

	stats, _ := m.Stats(ctx)
	if stats.Edges[model.EdgeTrace] != 1 {
		t.Errorf("edge count = %d, want 1", stats.Edges[model.EdgeTrace])
	}
}

func TestMemoryDanglingEndpoints(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// An edge recorded before either endpoint is defined.
	m.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "GhostController",
		DstLabel: model.LabelUseCase, DstKey: "UC09",
	})

	if ok, _ := m.NodeExists(ctx, model.LabelClass, "GhostController"); ok {
		t.Error("edge endpoint alone should not define a node")
	}

	edges, _ := m.EdgesByType(ctx, model.EdgeTrace)
	if len(edges) != 1 {
		t.Fatalf("edge should survive without endpoints, got %v", edges)
	}

	// Defining the endpoint later completes the picture.
	m.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "GhostController"})
	if ok, _ := m.NodeExists(ctx, model.LabelClass, "GhostController"); !ok {
		t.Error("node should exist after definition")
	}
}

func TestMemoryTraversal(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "A"})
	m.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "B"})
	m.UpsertNode(ctx, model.Node{Label: model.LabelUseCase, Key: "UC01"})
	m.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeDependsOn,
		SrcLabel: model.LabelClass, SrcKey: "A",
		DstLabel: model.LabelClass, DstKey: "B",
	})
	m.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "A",
		DstLabel: model.LabelUseCase, DstKey: "UC01",
	})

	from, _ := m.EdgesFrom(ctx, model.LabelClass, "A")
	if len(from) != 2 {
		t.Errorf("EdgesFrom(A) = %d edges, want 2", len(from))
	}
	to, _ := m.EdgesTo(ctx, model.LabelClass, "B")
	if len(to) != 1 || to[0].Type != model.EdgeDependsOn {
		t.Errorf("EdgesTo(B) = %v", to)
	}
	to, _ = m.EdgesTo(ctx, model.LabelUseCase, "UC01")
	if len(to) != 1 || to[0].SrcKey != "A" {
		t.Errorf("EdgesTo(UC01) = %v", to)
	}
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "A"})
	m.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "A",
		DstLabel: model.LabelUseCase, DstKey: "UC01",
	})
	if err := m.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	stats, _ := m.Stats(ctx)
	nodes, edges := stats.Total()
	if nodes != 0 || edges != 0 {
		t.Errorf("after Clear: %d nodes, %d edges", nodes, edges)
	}
}

func TestMemoryNodesByLabelSorted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, key := range []string{"UC03", "UC01", "UC02"} {
		m.UpsertNode(ctx, model.Node{Label: model.LabelUseCase, Key: key})
	}
	m.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "A"})

	nodes, _ := m.NodesByLabel(ctx, model.LabelUseCase)
	if len(nodes) != 3 {
		t.Fatalf("nodes = %v", nodes)
	}
	for i, want := range []string{"UC01", "UC02", "UC03"} {
		if nodes[i].Key != want {
			t.Errorf("nodes[%d].Key = %q, want %q", i, nodes[i].Key, want)
		}
	}
}

func TestMemoryReadIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.UpsertNode(ctx, model.Node{
		Label: model.LabelClass, Key: "A",
		Props: map[string]interface{}{"name": "A"},
	})

	n, _ := m.Node(ctx, model.LabelClass, "A")
	n.Props["name"] = "mutated"

	fresh, _ := m.Node(ctx, model.LabelClass, "A")
	if fresh.Props["name"] != "A" {
		t.Error("returned props must be copies, not aliases into the store")
	}
}
