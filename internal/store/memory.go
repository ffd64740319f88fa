package store

import (
	"context"
	"sort"
	"sync"

	"tracekg/internal/model"
)

// Memory is an in-process Store. It backs the "memory" backend for
// one-shot runs and is the reference implementation the durable backends
// must agree with.
type Memory struct {
	mu    sync.RWMutex
	nodes map[string]model.Node // defined nodes only
	edges map[string]model.Edge // keyed by Edge.Identity()
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[string]model.Node),
		edges: make(map[string]model.Edge),
	}
}

func nodeKey(label model.Label, key string) string {
	return string(label) + "\x00" + key
}

func (m *Memory) UpsertNode(ctx context.Context, n model.Node) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := nodeKey(n.Label, n.Key)
	existing, ok := m.nodes[k]
	if !ok {
		m.nodes[k] = model.Node{Label: n.Label, Key: n.Key, Props: copyProps(n.Props)}
		return true, nil
	}

	if existing.Props == nil {
		existing.Props = make(map[string]interface{})
	}
	for name, value := range n.Props {
		existing.Props[name] = value
	}
	m.nodes[k] = existing
	return false, nil
}

func (m *Memory) UpsertEdge(ctx context.Context, e model.Edge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := e.Identity()
	existing, ok := m.edges[id]
	if !ok {
		e.Props = copyProps(e.Props)
		m.edges[id] = e
		return true, nil
	}

	if len(e.Props) > 0 {
		if existing.Props == nil {
			existing.Props = make(map[string]interface{})
		}
		for name, value := range e.Props {
			existing.Props[name] = value
		}
		m.edges[id] = existing
	}
	return false, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]model.Node)
	m.edges = make(map[string]model.Edge)
	return nil
}

func (m *Memory) NodeExists(ctx context.Context, label model.Label, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[nodeKey(label, key)]
	return ok, nil
}

func (m *Memory) Node(ctx context.Context, label model.Label, key string) (*model.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[nodeKey(label, key)]
	if !ok {
		return nil, nil
	}
	n.Props = copyProps(n.Props)
	return &n, nil
}

func (m *Memory) NodesByLabel(ctx context.Context, label model.Label) ([]model.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Node
	for _, n := range m.nodes {
		if n.Label == label {
			n.Props = copyProps(n.Props)
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) EdgesFrom(ctx context.Context, label model.Label, key string) ([]model.Edge, error) {
	return m.selectEdges(func(e model.Edge) bool {
		return e.SrcLabel == label && e.SrcKey == key
	}), nil
}

func (m *Memory) EdgesTo(ctx context.Context, label model.Label, key string) ([]model.Edge, error) {
	return m.selectEdges(func(e model.Edge) bool {
		return e.DstLabel == label && e.DstKey == key
	}), nil
}

func (m *Memory) EdgesByType(ctx context.Context, t model.EdgeType) ([]model.Edge, error) {
	return m.selectEdges(func(e model.Edge) bool { return e.Type == t }), nil
}

func (m *Memory) selectEdges(match func(model.Edge) bool) []model.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Edge
	for _, e := range m.edges {
		if match(e) {
			e.Props = copyProps(e.Props)
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Nodes: make(map[model.Label]int),
		Edges: make(map[model.EdgeType]int),
	}
	for _, n := range m.nodes {
		stats.Nodes[n.Label]++
	}
	for _, e := range m.edges {
		stats.Edges[e.Type]++
	}
	return stats, nil
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}

func copyProps(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
