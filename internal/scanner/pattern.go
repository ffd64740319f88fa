package scanner

import (
	"context"
	"regexp"
	"strings"
)

// patternExtractor recognizes class-like declarations with line patterns.
// It is the portable extraction path, always available, and the reference
// behavior the tree-sitter extractor must agree with.
type patternExtractor struct{}

func newPatternExtractor() *patternExtractor {
	return &patternExtractor{}
}

var declPatterns = map[string]*regexp.Regexp{
	".py":   regexp.MustCompile(`^class\s+(\w+)\s*(?:\([^)]*\))?\s*:`),
	".go":   regexp.MustCompile(`^type\s+(\w+)\s+(?:struct|interface)\b`),
	".java": regexp.MustCompile(`^\s*(?:(?:public|protected|private|final|abstract|static)\s+)*(?:class|interface|enum)\s+(\w+)`),
	".js":   regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`),
	".ts":   regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`),
	".cs":   regexp.MustCompile(`^\s*(?:(?:public|internal|sealed|abstract|partial|static)\s+)*(?:class|interface)\s+(\w+)`),
}

func (e *patternExtractor) Supports(ext string) bool {
	_, ok := declPatterns[ext]
	return ok
}

func (e *patternExtractor) Extract(ctx context.Context, path string, src []byte) ([]Declaration, error) {
	ext := extOf(path)
	pattern, ok := declPatterns[ext]
	if !ok {
		return nil, nil
	}

	lines := strings.Split(string(src), "\n")
	var decls []Declaration
	var comment []string // contiguous comment block preceding the current line
	inBlockComment := false

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if inBlockComment {
			text := trimmed
			if idx := strings.Index(text, "*/"); idx >= 0 {
				text = text[:idx]
				inBlockComment = false
			}
			comment = append(comment, strings.TrimPrefix(strings.TrimSpace(text), "*"))
			continue
		}

		switch {
		case trimmed == "":
			// Blank lines inside a comment run are tolerated.
			continue
		case strings.HasPrefix(trimmed, "/*"):
			text := strings.TrimPrefix(trimmed, "/**")
			text = strings.TrimPrefix(text, "/*")
			if idx := strings.Index(text, "*/"); idx >= 0 {
				text = text[:idx]
			} else {
				inBlockComment = true
			}
			comment = append(comment, strings.TrimSpace(text))
			continue
		case strings.HasPrefix(trimmed, "//"):
			comment = append(comment, strings.TrimSpace(strings.TrimPrefix(trimmed, "//")))
			continue
		case strings.HasPrefix(trimmed, "#") && ext == ".py":
			comment = append(comment, strings.TrimSpace(strings.TrimPrefix(trimmed, "#")))
			continue
		}

		if m := pattern.FindStringSubmatch(line); m != nil {
			doc := strings.Join(comment, "\n")
			if ext == ".py" {
				if ds := pythonDocstring(lines, i+1); ds != "" {
					if doc != "" {
						doc += "\n"
					}
					doc += ds
				}
			}
			decls = append(decls, Declaration{
				Name: m[1],
				Line: i + 1,
				Doc:  doc,
			})
		}

		comment = nil
	}

	return decls, nil
}

// pythonDocstring returns the docstring opening at or shortly after the
// given line index, or "".
func pythonDocstring(lines []string, start int) string {
	for i := start; i < len(lines) && i < start+3; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}

		var quote string
		switch {
		case strings.HasPrefix(trimmed, `"""`):
			quote = `"""`
		case strings.HasPrefix(trimmed, "'''"):
			quote = "'''"
		default:
			return "" // first statement is not a docstring
		}

		body := strings.TrimPrefix(trimmed, quote)
		if idx := strings.Index(body, quote); idx >= 0 {
			return strings.TrimSpace(body[:idx]) // one-line docstring
		}

		parts := []string{strings.TrimSpace(body)}
		for j := i + 1; j < len(lines); j++ {
			text := strings.TrimSpace(lines[j])
			if idx := strings.Index(text, quote); idx >= 0 {
				parts = append(parts, strings.TrimSpace(text[:idx]))
				return strings.TrimSpace(strings.Join(parts, "\n"))
			}
			parts = append(parts, text)
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}
	return ""
}

func extOf(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return strings.ToLower(path[idx:])
	}
	return ""
}
