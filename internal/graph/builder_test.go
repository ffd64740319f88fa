package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tracekg/internal/logging"
	"tracekg/internal/model"
	"tracekg/internal/store"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
}

func sampleBatch() *model.Batch {
	b := model.NewBatch()
	b.AddNode(model.Node{Label: model.LabelUseCase, Key: "UC01", Props: map[string]interface{}{"name": "Browse"}})
	b.AddNode(model.Node{Label: model.LabelClass, Key: "Catalog", Props: map[string]interface{}{"stage": "design"}})
	b.AddEdge(model.Edge{
		Type:     model.EdgeTrace,
		SrcLabel: model.LabelClass, SrcKey: "Catalog",
		DstLabel: model.LabelUseCase, DstKey: "UC01",
	})
	return b
}

func TestApplyMerge(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	builder := NewBuilder(st, testLogger())

	result, err := builder.Apply(ctx, sampleBatch(), ModeMerge)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.NodesCreated != 2 || result.EdgesCreated != 1 {
		t.Errorf("created %d nodes / %d edges, want 2 / 1", result.NodesCreated, result.EdgesCreated)
	}
	if result.NodesUpdated != 0 || result.EdgesUpdated != 0 {
		t.Errorf("fresh store should have no updates: %+v", result)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	builder := NewBuilder(st, testLogger())

	if _, err := builder.Apply(ctx, sampleBatch(), ModeMerge); err != nil {
		t.Fatal(err)
	}
	second, err := builder.Apply(ctx, sampleBatch(), ModeMerge)
	if err != nil {
		t.Fatal(err)
	}

	if second.NodesCreated != 0 || second.EdgesCreated != 0 {
		t.Errorf("replay created %d nodes / %d edges, want 0 / 0",
			second.NodesCreated, second.EdgesCreated)
	}

	stats, _ := st.Stats(ctx)
	nodes, edges := stats.Total()
	if nodes != 2 || edges != 1 {
		t.Errorf("store holds %d nodes / %d edges after replay, want 2 / 1", nodes, edges)
	}
}

func TestApplyMergePreservesExisting(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	builder := NewBuilder(st, testLogger())

	if _, err := builder.Apply(ctx, sampleBatch(), ModeMerge); err != nil {
		t.Fatal(err)
	}

	update := model.NewBatch()
	update.AddNode(model.Node{Label: model.LabelUseCase, Key: "UC02"})
	if _, err := builder.Apply(ctx, update, ModeMerge); err != nil {
		t.Fatal(err)
	}

	if ok, _ := st.NodeExists(ctx, model.LabelUseCase, "UC01"); !ok {
		t.Error("merge must not drop prior nodes")
	}
	if ok, _ := st.NodeExists(ctx, model.LabelUseCase, "UC02"); !ok {
		t.Error("merge must add new nodes")
	}
}

func TestApplyRebuildClearsFirst(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	builder := NewBuilder(st, testLogger())

	if _, err := builder.Apply(ctx, sampleBatch(), ModeMerge); err != nil {
		t.Fatal(err)
	}

	replacement := model.NewBatch()
	replacement.AddNode(model.Node{Label: model.LabelUseCase, Key: "UC09"})
	if _, err := builder.Apply(ctx, replacement, ModeRebuild); err != nil {
		t.Fatal(err)
	}

	if ok, _ := st.NodeExists(ctx, model.LabelUseCase, "UC01"); ok {
		t.Error("rebuild must discard prior contents")
	}
	if ok, _ := st.NodeExists(ctx, model.LabelUseCase, "UC09"); !ok {
		t.Error("rebuild must apply the new batch")
	}
}

func TestApplyPropertyMergeLaterWins(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	builder := NewBuilder(st, testLogger())

	first := model.NewBatch()
	first.AddNode(model.Node{
		Label: model.LabelClass, Key: "Catalog",
		Props: map[string]interface{}{"name": "Catalog", "stage": "design"},
	})
	if _, err := builder.Apply(ctx, first, ModeMerge); err != nil {
		t.Fatal(err)
	}

	second := model.NewBatch()
	second.AddNode(model.Node{
		Label: model.LabelClass, Key: "Catalog",
		Props: map[string]interface{}{"stage": "code"},
	})
	if _, err := builder.Apply(ctx, second, ModeMerge); err != nil {
		t.Fatal(err)
	}

	n, _ := st.Node(ctx, model.LabelClass, "Catalog")
	if n.Props["stage"] != "code" {
		t.Errorf("stage = %v, want later value to win", n.Props["stage"])
	}
	if n.Props["name"] != "Catalog" {
		t.Errorf("name = %v, untouched keys must survive", n.Props["name"])
	}
}

func TestApplyConcurrentBatches(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	builder := NewBuilder(st, testLogger())

	const workers = 8
	results := make([]*ApplyResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := model.NewBatch()
			// Every batch touches the shared use case plus its own class.
			b.AddNode(model.Node{Label: model.LabelUseCase, Key: "UC01"})
			class := fmt.Sprintf("Worker%d", i)
			b.AddNode(model.Node{Label: model.LabelClass, Key: class})
			b.AddEdge(model.Edge{
				Type:     model.EdgeTrace,
				SrcLabel: model.LabelClass, SrcKey: class,
				DstLabel: model.LabelUseCase, DstKey: "UC01",
			})
			results[i], errs[i] = builder.Apply(ctx, b, ModeMerge)
		}(i)
	}
	wg.Wait()

	nodesCreated, edgesCreated := 0, 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		nodesCreated += results[i].NodesCreated
		edgesCreated += results[i].EdgesCreated
	}
	if nodesCreated != workers+1 {
		t.Errorf("total nodes created = %d, want %d (each entity created exactly once)", nodesCreated, workers+1)
	}
	if edgesCreated != workers {
		t.Errorf("total edges created = %d, want %d", edgesCreated, workers)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	nodes, edges := stats.Total()
	if nodes != workers+1 || edges != workers {
		t.Errorf("store holds %d nodes / %d edges, want %d / %d", nodes, edges, workers+1, workers)
	}
}

func TestApplyCarriesWarnings(t *testing.T) {
	b := model.NewBatch()
	b.Warn(model.WarnUnrecognizedLine, "a.puml", 3, "unrecognized line")

	result, err := NewBuilder(store.NewMemory(), testLogger()).Apply(context.Background(), b, ModeMerge)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v", result.Warnings)
	}
}
