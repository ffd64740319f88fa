package model

// Batch accumulates the nodes, edges, and warnings extracted from one
// artifact or source file. Batches deduplicate as they grow so repeated
// extraction of the same element is a no-op, matching the upsert semantics
// downstream.
type Batch struct {
	Nodes    []Node
	Edges    []Edge
	Warnings []Warning

	nodeIdx map[NodeRef]int
	edgeIdx map[string]bool
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{
		nodeIdx: make(map[NodeRef]int),
		edgeIdx: make(map[string]bool),
	}
}

// AddNode upserts a node into the batch. Properties of a node already
// present under the same (label, key) are merged, with the newer value
// winning on conflicting scalar fields.
func (b *Batch) AddNode(n Node) {
	ref := n.Ref()
	if i, ok := b.nodeIdx[ref]; ok {
		existing := &b.Nodes[i]
		if existing.Props == nil && len(n.Props) > 0 {
			existing.Props = make(map[string]interface{}, len(n.Props))
		}
		for k, v := range n.Props {
			if skipOverwrite(v) {
				continue
			}
			existing.Props[k] = v
		}
		return
	}

	b.nodeIdx[ref] = len(b.Nodes)
	b.Nodes = append(b.Nodes, n)
}

// skipOverwrite reports whether a merged property value should be ignored
// in favor of what is already present: empty strings and empty lists never
// clobber known data.
func skipOverwrite(v interface{}) bool {
	switch val := v.(type) {
	case string:
		return val == ""
	case []Attribute:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case nil:
		return true
	}
	return false
}

// AddEdge upserts an edge into the batch, deduplicating on (src, dst, type).
func (b *Batch) AddEdge(e Edge) {
	id := e.Identity()
	if b.edgeIdx[id] {
		return
	}
	b.edgeIdx[id] = true
	b.Edges = append(b.Edges, e)
}

// Warn records a non-fatal finding.
func (b *Batch) Warn(kind WarningKind, source string, line int, message string) {
	b.Warnings = append(b.Warnings, Warning{
		Kind:    kind,
		Source:  source,
		Line:    line,
		Message: message,
	})
}

// Merge absorbs another batch, preserving upsert semantics.
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	for _, n := range other.Nodes {
		b.AddNode(n)
	}
	for _, e := range other.Edges {
		b.AddEdge(e)
	}
	b.Warnings = append(b.Warnings, other.Warnings...)
}

// Empty reports whether the batch carries no graph records.
func (b *Batch) Empty() bool {
	return len(b.Nodes) == 0 && len(b.Edges) == 0
}
