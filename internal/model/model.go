// Package model defines the property-graph records exchanged between the
// artifact parser, the code scanner, the graph builder, and the trace
// linker. Node identity is (label, key); edge identity is (src, dst, type).
package model

// Label identifies a node type in the graph.
type Label string

const (
	LabelUseCase   Label = "UseCase"
	LabelClass     Label = "Class"
	LabelInterface Label = "Interface"
	LabelComponent Label = "Component"
	LabelOperation Label = "Operation"
	LabelCodeFile  Label = "CodeFile"
)

// EdgeType identifies a relationship type in the graph.
type EdgeType string

const (
	// EdgeTrace asserts a design element realizes a requirement (Class -> UseCase).
	EdgeTrace EdgeType = "TRACE"
	// EdgeDependsOn is a structural dependency between design elements.
	EdgeDependsOn EdgeType = "DEPENDS_ON"
	// EdgeInherits is a generalization between design elements.
	EdgeInherits EdgeType = "INHERITS"
	// EdgePartOf places a design element inside a Component.
	EdgePartOf EdgeType = "PART_OF"
	// EdgeImplements asserts code realizes a design element (CodeFile -> Class).
	EdgeImplements EdgeType = "IMPLEMENTS"
)

// Stage tags which lifecycle stage produced an artifact.
type Stage string

const (
	StageRequirement Stage = "requirement"
	StageDesign      Stage = "design"
	StageCode        Stage = "code"
)

// Node is a labeled graph node keyed by its canonical key.
type Node struct {
	Label Label                  `json:"label"`
	Key   string                 `json:"key"`
	Props map[string]interface{} `json:"props,omitempty"`
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	Type     EdgeType               `json:"type"`
	SrcLabel Label                  `json:"srcLabel"`
	SrcKey   string                 `json:"srcKey"`
	DstLabel Label                  `json:"dstLabel"`
	DstKey   string                 `json:"dstKey"`
	Props    map[string]interface{} `json:"props,omitempty"`
}

// Identity returns the uniqueness triple for the edge.
func (e Edge) Identity() string {
	return string(e.SrcLabel) + ":" + e.SrcKey + "|" + string(e.DstLabel) + ":" + e.DstKey + "|" + string(e.Type)
}

// NodeRef identifies a node without carrying its properties.
type NodeRef struct {
	Label Label  `json:"label"`
	Key   string `json:"key"`
}

// Ref returns the node's reference.
func (n Node) Ref() NodeRef {
	return NodeRef{Label: n.Label, Key: n.Key}
}

// Attribute describes one class attribute extracted from a class body.
type Attribute struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Multiplicity string `json:"multiplicity,omitempty"`
}
