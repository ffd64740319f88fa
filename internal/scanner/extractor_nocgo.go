//go:build !cgo

package scanner

// newExtractor returns the portable pattern extractor on builds without
// CGO, where tree-sitter is unavailable.
func newExtractor() Extractor {
	return newPatternExtractor()
}
