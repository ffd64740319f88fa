// Package graph applies extracted record batches to a property-graph store.
package graph

import (
	"context"
	"sync"

	"tracekg/internal/logging"
	"tracekg/internal/model"
	"tracekg/internal/store"
)

// Mode selects how a batch lands in the store.
type Mode string

const (
	// ModeMerge upserts the batch into whatever the store already holds.
	ModeMerge Mode = "merge"
	// ModeRebuild clears the store before applying the batch.
	ModeRebuild Mode = "rebuild"
)

// ApplyResult reports what one Apply call changed.
type ApplyResult struct {
	NodesCreated int `json:"nodesCreated"`
	NodesUpdated int `json:"nodesUpdated"`
	EdgesCreated int `json:"edgesCreated"`
	EdgesUpdated int `json:"edgesUpdated"`

	// Warnings carried over from extraction; none are fatal.
	Warnings []model.Warning `json:"warnings,omitempty"`
}

// Builder writes batches to a store. Apply calls are serialized, so two
// concurrent builds cannot interleave half-applied batches.
type Builder struct {
	mu     sync.Mutex
	store  store.Store
	logger *logging.Logger
}

// NewBuilder creates a builder over the given store.
func NewBuilder(st store.Store, logger *logging.Logger) *Builder {
	return &Builder{store: st, logger: logger}
}

// Apply upserts the batch. Nodes land before edges so redefinitions in the
// same batch merge rather than dangle. A store error aborts the batch;
// writes already applied remain, and rerunning the same batch converges
// because every write is an upsert.
func (b *Builder) Apply(ctx context.Context, batch *model.Batch, mode Mode) (*ApplyResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mode == ModeRebuild {
		if err := b.store.Clear(ctx); err != nil {
			return nil, err
		}
		b.logger.Info("graph cleared for rebuild", nil)
	}

	result := &ApplyResult{Warnings: batch.Warnings}

	for _, n := range batch.Nodes {
		created, err := b.store.UpsertNode(ctx, n)
		if err != nil {
			return nil, err
		}
		if created {
			result.NodesCreated++
		} else {
			result.NodesUpdated++
		}
	}

	for _, e := range batch.Edges {
		created, err := b.store.UpsertEdge(ctx, e)
		if err != nil {
			return nil, err
		}
		if created {
			result.EdgesCreated++
		} else {
			result.EdgesUpdated++
		}
	}

	b.logger.Info("batch applied", map[string]interface{}{
		"mode":          string(mode),
		"nodes_created": result.NodesCreated,
		"nodes_updated": result.NodesUpdated,
		"edges_created": result.EdgesCreated,
		"edges_updated": result.EdgesUpdated,
		"warnings":      len(result.Warnings),
	})
	return result, nil
}
