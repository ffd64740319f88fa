// Package markup parses line-oriented diagram markup artifacts into graph
// record batches. Parsing is resilient: a line matching no grammar
// production is collected as a warning and skipped, never aborting the file.
package markup

import (
	"path/filepath"
	"strings"
)

// Kind identifies the diagram family an artifact belongs to.
type Kind string

const (
	KindUseCase  Kind = "use-case-diagram"
	KindClass    Kind = "class-diagram"
	KindPackage  Kind = "package-diagram"
	KindSequence Kind = "sequence-diagram"
	KindActivity Kind = "activity-diagram"
	// KindAuto asks the parser to infer the kind from the file name and content.
	KindAuto Kind = ""
)

// ParseKind validates a user-supplied kind string.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindUseCase, KindClass, KindPackage, KindSequence, KindActivity, KindAuto:
		return Kind(s), true
	}
	return KindAuto, false
}

// DetectKind infers the diagram kind from the artifact file name, falling
// back to content sniffing. Mirrors how artifact sets in the wild encode the
// kind in the file name.
func DetectKind(path, content string) Kind {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.Contains(name, "use-case"), strings.Contains(name, "usecase"), strings.Contains(name, "use_case"):
		return KindUseCase
	case strings.Contains(name, "activity"), strings.Contains(name, "flow"):
		return KindActivity
	case strings.Contains(name, "sequence"), strings.Contains(name, "seq"):
		return KindSequence
	case strings.Contains(name, "package"), strings.Contains(name, "component"):
		return KindPackage
	case strings.Contains(name, "class"):
		return KindClass
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "usecase "):
		return KindUseCase
	case strings.Contains(lower, "participant "):
		return KindSequence
	case activityActionRe.MatchString(content):
		return KindActivity
	case strings.Contains(lower, "package "):
		return KindPackage
	default:
		return KindClass
	}
}
