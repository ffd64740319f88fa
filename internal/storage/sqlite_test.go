package storage

import (
	"context"
	"testing"

	"tracekg/internal/logging"
	"tracekg/internal/model"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
}

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestSQLiteUpsertNode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created, err := s.UpsertNode(ctx, model.Node{
		Label: model.LabelUseCase, Key: "UC01",
		Props: map[string]interface{}{"name": "Browse Catalog"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first upsert should create")
	}

	created, err = s.UpsertNode(ctx, model.Node{
		Label: model.LabelUseCase, Key: "UC01",
		Props: map[string]interface{}{"stage": "requirement"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second upsert should update")
	}

	n, err := s.Node(ctx, model.LabelUseCase, "UC01")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil {
		t.Fatal("node missing")
	}
	if n.Props["name"] != "Browse Catalog" || n.Props["stage"] != "requirement" {
		t.Errorf("props should merge across upserts, got %v", n.Props)
	}
}

func TestSQLiteUpsertEdgeIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	e := model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "AuthController",
		DstLabel: model.LabelUseCase, DstKey: "UC02",
	}
	if created, _ := s.UpsertEdge(ctx, e); !created {
		t.Error("first edge upsert should create")
	}
	if created, _ := s.UpsertEdge(ctx, e); created {
		t.Error("duplicate edge upsert should not create")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Edges[model.EdgeTrace] != 1 {
		t.Errorf("edge count = %d, want 1", stats.Edges[model.EdgeTrace])
	}
}

func TestSQLiteDanglingEdge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	s.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "Ghost",
		DstLabel: model.LabelUseCase, DstKey: "UC09",
	})

	if ok, _ := s.NodeExists(ctx, model.LabelClass, "Ghost"); ok {
		t.Error("edge endpoint alone should not define a node")
	}
	edges, err := s.EdgesByType(ctx, model.EdgeTrace)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("edges = %v", edges)
	}
}

func TestSQLiteTraversal(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	s.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "A"})
	s.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "B"})
	s.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeDependsOn,
		SrcLabel: model.LabelClass, SrcKey: "A",
		DstLabel: model.LabelClass, DstKey: "B",
	})
	s.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "A",
		DstLabel: model.LabelUseCase, DstKey: "UC01",
	})

	from, err := s.EdgesFrom(ctx, model.LabelClass, "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(from) != 2 {
		t.Errorf("EdgesFrom(A) = %v, want 2 edges", from)
	}

	to, err := s.EdgesTo(ctx, model.LabelUseCase, "UC01")
	if err != nil {
		t.Fatal(err)
	}
	if len(to) != 1 || to[0].SrcKey != "A" {
		t.Errorf("EdgesTo(UC01) = %v", to)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.UpsertNode(ctx, model.Node{
		Label: model.LabelUseCase, Key: "UC01",
		Props: map[string]interface{}{"name": "Browse"},
	})
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close(ctx)

	n, err := reopened.Node(ctx, model.LabelUseCase, "UC01")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil || n.Props["name"] != "Browse" {
		t.Errorf("node did not survive reopen: %v", n)
	}
}

func TestSQLiteClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	s.UpsertNode(ctx, model.Node{Label: model.LabelClass, Key: "A"})
	s.UpsertEdge(ctx, model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "A",
		DstLabel: model.LabelUseCase, DstKey: "UC01",
	})

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ := s.Stats(ctx)
	nodes, edges := stats.Total()
	if nodes != 0 || edges != 0 {
		t.Errorf("after Clear: %d nodes, %d edges", nodes, edges)
	}
}

func TestSQLiteNodesByLabelOrdered(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, key := range []string{"UC03", "UC01", "UC02"} {
		s.UpsertNode(ctx, model.Node{Label: model.LabelUseCase, Key: key})
	}

	nodes, err := s.NodesByLabel(ctx, model.LabelUseCase)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"UC01", "UC02", "UC03"} {
		if nodes[i].Key != want {
			t.Errorf("nodes[%d].Key = %q, want %q", i, nodes[i].Key, want)
		}
	}
}
