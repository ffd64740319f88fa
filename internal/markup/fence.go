package markup

import (
	"bufio"
	"strings"
)

// ExtractFences returns the contents of ```plantuml fenced code blocks in a
// markdown document, in order. Artifacts are often embedded in design docs
// rather than shipped as standalone files.
func ExtractFences(text string) []string {
	var blocks []string
	var current strings.Builder
	inFence := false

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if !inFence {
			if strings.HasPrefix(trimmed, "```") {
				lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
				if lang == "plantuml" || lang == "puml" || lang == "uml" {
					inFence = true
					current.Reset()
				}
			}
			continue
		}

		if trimmed == "```" {
			inFence = false
			blocks = append(blocks, current.String())
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	return blocks
}
