// Package store defines the property-graph persistence interface and its
// backends. Node identity is (label, key) and edge identity is
// (src, dst, type); every write is an idempotent upsert.
//
// Backends may record an edge before either endpoint has been written.
// Such endpoints are placeholders: NodeExists reports false for them, so
// verification can surface references that nothing ever defined.
package store

import (
	"context"

	"tracekg/internal/model"
)

// Store is a property-graph backend.
type Store interface {
	// UpsertNode creates or updates a node. Property merge is shallow:
	// provided keys overwrite, absent keys survive. Reports whether the
	// node was newly created.
	UpsertNode(ctx context.Context, n model.Node) (created bool, err error)

	// UpsertEdge creates or updates an edge, materializing placeholder
	// endpoints as needed. Reports whether the edge was newly created.
	UpsertEdge(ctx context.Context, e model.Edge) (created bool, err error)

	// Clear removes all nodes and edges.
	Clear(ctx context.Context) error

	// NodeExists reports whether a defined (non-placeholder) node exists.
	NodeExists(ctx context.Context, label model.Label, key string) (bool, error)

	// Node returns a defined node, or nil when absent.
	Node(ctx context.Context, label model.Label, key string) (*model.Node, error)

	// NodesByLabel returns every defined node with the given label,
	// ordered by key.
	NodesByLabel(ctx context.Context, label model.Label) ([]model.Node, error)

	// EdgesFrom returns every edge whose source is the given node.
	EdgesFrom(ctx context.Context, label model.Label, key string) ([]model.Edge, error)

	// EdgesTo returns every edge whose destination is the given node.
	EdgesTo(ctx context.Context, label model.Label, key string) ([]model.Edge, error)

	// EdgesByType returns every edge of the given type.
	EdgesByType(ctx context.Context, t model.EdgeType) ([]model.Edge, error)

	// Stats returns node counts per label and edge counts per type.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Stats summarizes graph contents.
type Stats struct {
	Nodes map[model.Label]int    `json:"nodes"`
	Edges map[model.EdgeType]int `json:"edges"`
}

// Total returns the combined node and edge count.
func (s Stats) Total() (nodes, edges int) {
	for _, n := range s.Nodes {
		nodes += n
	}
	for _, n := range s.Edges {
		edges += n
	}
	return nodes, edges
}
