package scanner

import (
	"regexp"
	"strings"

	"tracekg/internal/ident"
)

// Annotation is the parsed form of a trace marker found in a documentation
// block. The marker syntax is a single declarative production:
//
//	Trace: [UC-01, UC-02]
//
// Tokens inside the brackets that fail normalization are kept in Malformed
// so callers can warn with the raw spelling.
type Annotation struct {
	UseCases  []string // canonical ids, deduplicated, in first-seen order
	Malformed []string // raw tokens that failed normalization
}

var annotationRe = regexp.MustCompile(`(?i)\btrace\s*:\s*\[([^\]]*)\]`)

// ParseAnnotation extracts every trace annotation from a documentation
// block. Multiple markers accumulate.
func ParseAnnotation(doc string) Annotation {
	var ann Annotation
	if doc == "" {
		return ann
	}

	seen := make(map[string]bool)
	for _, m := range annotationRe.FindAllStringSubmatch(doc, -1) {
		for _, tok := range splitTokens(m[1]) {
			id, err := ident.Normalize(tok)
			if err != nil {
				ann.Malformed = append(ann.Malformed, tok)
				continue
			}
			if !seen[id] {
				seen[id] = true
				ann.UseCases = append(ann.UseCases, id)
			}
		}
	}
	return ann
}

func splitTokens(list string) []string {
	var tokens []string
	for _, part := range strings.Split(list, ",") {
		if tok := strings.TrimSpace(part); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
