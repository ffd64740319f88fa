//go:build cgo

package scanner

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// newExtractor returns the tree-sitter extractor on CGO builds. It agrees
// with the pattern extractor on declaration names and lines but survives
// formatting the line patterns cannot, such as multi-line declarations.
func newExtractor() Extractor {
	return newTreeSitterExtractor()
}

type treeSitterExtractor struct {
	fallback *patternExtractor
}

func newTreeSitterExtractor() *treeSitterExtractor {
	return &treeSitterExtractor{fallback: newPatternExtractor()}
}

var tsLanguages = map[string]func() *sitter.Language{
	".py":   python.GetLanguage,
	".go":   golang.GetLanguage,
	".java": java.GetLanguage,
	".js":   javascript.GetLanguage,
	".ts":   typescript.GetLanguage,
}

var tsClassNodeTypes = map[string][]string{
	".py":   {"class_definition"},
	".go":   {"type_declaration"},
	".java": {"class_declaration", "interface_declaration", "enum_declaration"},
	".js":   {"class_declaration"},
	".ts":   {"class_declaration", "interface_declaration"},
}

func (e *treeSitterExtractor) Supports(ext string) bool {
	if _, ok := tsLanguages[ext]; ok {
		return true
	}
	return e.fallback.Supports(ext)
}

func (e *treeSitterExtractor) Extract(ctx context.Context, path string, src []byte) ([]Declaration, error) {
	ext := extOf(path)
	langFn, ok := tsLanguages[ext]
	if !ok {
		return e.fallback.Extract(ctx, path, src)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(langFn())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		// Broken sources still deserve a best-effort pattern pass.
		return e.fallback.Extract(ctx, path, src)
	}
	defer tree.Close()

	lines := strings.Split(string(src), "\n")
	var decls []Declaration

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if matchesType(tsClassNodeTypes[ext], node.Type()) {
			if name := declName(node, src, ext); name != "" {
				line := int(node.StartPoint().Row) + 1
				decls = append(decls, Declaration{
					Name: name,
					Line: line,
					Doc:  attachedDoc(lines, ext, line),
				})
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())

	return decls, nil
}

func matchesType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func declName(node *sitter.Node, src []byte, ext string) string {
	if ext == ".go" {
		// type_declaration wraps type_spec which carries the name.
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child != nil && child.Type() == "type_spec" {
				if name := child.ChildByFieldName("name"); name != nil {
					return string(src[name.StartByte():name.EndByte()])
				}
			}
		}
		return ""
	}

	if name := node.ChildByFieldName("name"); name != nil {
		return string(src[name.StartByte():name.EndByte()])
	}
	return ""
}

// attachedDoc collects the documentation block attached to a declaration
// starting at declLine (1-indexed): the contiguous comment block above it,
// plus the docstring below for Python.
func attachedDoc(lines []string, ext string, declLine int) string {
	var above []string
	inBlock := false
	for i := declLine - 2; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "" && len(above) == 0:
			continue
		case inBlock:
			text := strings.TrimPrefix(trimmed, "/**")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimPrefix(strings.TrimSpace(text), "*")
			above = append([]string{strings.TrimSpace(text)}, above...)
			if strings.HasPrefix(trimmed, "/*") {
				inBlock = false
			}
		case strings.HasSuffix(trimmed, "*/"):
			text := strings.TrimSuffix(trimmed, "*/")
			text = strings.TrimPrefix(strings.TrimSpace(text), "/**")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimPrefix(strings.TrimSpace(text), "*")
			above = append([]string{strings.TrimSpace(text)}, above...)
			if !strings.HasPrefix(trimmed, "/*") {
				inBlock = true
			}
		case strings.HasPrefix(trimmed, "//"):
			above = append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))}, above...)
		case strings.HasPrefix(trimmed, "#") && ext == ".py":
			above = append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))}, above...)
		default:
			i = -1 // non-comment line ends the block
		}
	}

	doc := strings.Join(above, "\n")
	if ext == ".py" {
		if ds := pythonDocstring(lines, declLine); ds != "" {
			if doc != "" {
				doc += "\n"
			}
			doc += ds
		}
	}
	return strings.TrimSpace(doc)
}
