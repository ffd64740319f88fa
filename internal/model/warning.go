package model

import "fmt"

// WarningKind classifies the non-fatal conditions a run collects.
type WarningKind string

const (
	// WarnUnrecognizedLine marks an artifact line no grammar production matched.
	WarnUnrecognizedLine WarningKind = "unrecognized-line"
	// WarnNormalization marks an identifier token that could not be canonicalized.
	WarnNormalization WarningKind = "normalization"
	// WarnCoverageGap marks an element with no downstream link.
	WarnCoverageGap WarningKind = "coverage-gap"
	// WarnDanglingReference marks an edge endpoint that does not exist in the graph.
	WarnDanglingReference WarningKind = "dangling-reference"
)

// Warning is a non-fatal finding tied to a source location.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Source  string      `json:"source,omitempty"`
	Line    int         `json:"line,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Source != "" && w.Line > 0:
		return fmt.Sprintf("%s:%d: [%s] %s", w.Source, w.Line, w.Kind, w.Message)
	case w.Source != "":
		return fmt.Sprintf("%s: [%s] %s", w.Source, w.Kind, w.Message)
	default:
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
}
