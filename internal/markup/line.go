package markup

import (
	"regexp"
	"strings"
)

// lineClass is the sum type of recognized grammar productions. Every input
// line classifies into exactly one case; lineUnknown is the explicit
// "no production matched" case that becomes a parse warning.
type lineClass int

const (
	lineBlank lineClass = iota
	lineDirective
	lineComment
	lineActor
	lineUseCase
	lineTypeDecl // class / interface / component declaration, optionally opening a block
	linePackageDecl
	lineBlockEnd
	lineAttribute
	lineOperation
	lineTraceMarker
	lineSection // ".. separator .." inside a class body
	lineRelation
	lineParticipant
	lineMessage
	lineActivityAction
	lineActivityFlow
	lineUnknown
)

// classified carries the production plus its captures.
type classified struct {
	class lineClass

	name    string // display name (actor, use case, class, package, participant)
	alias   string // "as X" alias when present
	kind    string // "class" | "interface" | "component"
	opening bool   // declaration opens a { block

	attr attrCapture
	rel  relCapture

	refs []string // raw use-case reference tokens on a trace marker line
}

type attrCapture struct {
	visibility   string
	name         string
	typ          string
	multiplicity string
}

type relCapture struct {
	src      string
	srcMult  string
	arrow    string
	dstMult  string
	dst      string
	label    string
}

var (
	directiveRe = regexp.MustCompile(`^@(start|end)\w+`)

	actorRe = regexp.MustCompile(`^actor\s+(?:"([^"]+)"|(\S+))(?:\s+as\s+(\S+))?\s*$`)

	// usecase "Sign in" as UC02   |   usecase UC02   |   (Sign in) as UC02
	useCaseRe    = regexp.MustCompile(`^usecase\s+(?:"([^"]+)"|(\S+))(?:\s+as\s+(\S+))?\s*$`)
	useCaseAltRe = regexp.MustCompile(`^\(([^()]+)\)(?:\s+as\s+(\S+))?\s*$`)

	typeDeclRe = regexp.MustCompile(`^(class|interface|component)\s+(?:"([^"]+)"|([\w.]+))(?:\s+as\s+(\S+))?\s*(\{)?\s*$`)

	packageRe = regexp.MustCompile(`^package\s+(?:"([^"]+)"|(\S+))\s*(\{)?\s*$`)

	attributeRe = regexp.MustCompile(`^([-+#~])\s*(\w+)\s*(?::\s*([^\[\]]+?))?\s*(?:\[([^\]]+)\])?\s*$`)

	operationRe = regexp.MustCompile(`^([-+#~])?\s*(\w+)\s*\(([^)]*)\)\s*(?::\s*(\S+))?\s*$`)

	sectionRe = regexp.MustCompile(`^\.\..*\.\.$|^__.*__$|^--.*--$|^==.*==$`)

	relationRe = regexp.MustCompile(`^([\w.-]+?)\s*(?:"([^"]*)"\s*)?(<\|--|<\|\.\.|\*--|o--|--\*|--o|\.\.>|<\.\.|-->|<--|--|\.\.)\s*(?:"([^"]*)"\s*)?([\w.-]+)\s*(?::\s*(.+))?$`)

	participantRe = regexp.MustCompile(`^(participant|boundary|control|entity|database|collections)\s+(?:"([^"]+)"|(\S+))(?:\s+as\s+(\S+))?\s*$`)

	messageRe = regexp.MustCompile(`^([\w.-]+?)\s*(-+>>?|<<?-+)\s*([\w.-]+)\s*(?::\s*(.+))?$`)

	activityActionRe = regexp.MustCompile(`(?m)^\s*:[^;:]+;\s*$`)
	activityLineRe   = regexp.MustCompile(`^:([^;]+);$`)
	activityFlowRe   = regexp.MustCompile(`^(start|stop|end|fork(?:\s+again)?|end\s+fork|repeat.*|else.*|endif|endwhile.*|if\s*\(.*|while\s*\(.*|->.*|detach|\|[^|]*\|)$`)

	traceBracketRe = regexp.MustCompile(`\[([^\]]*UC[-_]?\d+[^\]]*)\]`)
)

// classify maps one trimmed line onto its grammar production. inBody is true
// inside a class/interface block where attribute, operation, and trace
// marker productions apply.
func classify(line string, inBody bool) classified {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return classified{class: lineBlank}
	case strings.HasPrefix(trimmed, "'"), strings.HasPrefix(trimmed, "//"):
		return classified{class: lineComment}
	case directiveRe.MatchString(trimmed):
		return classified{class: lineDirective}
	case trimmed == "}":
		return classified{class: lineBlockEnd}
	}

	if inBody {
		if m := traceBracketRe.FindStringSubmatch(trimmed); m != nil {
			return classified{class: lineTraceMarker, refs: findRawRefs(m[1])}
		}
		if sectionRe.MatchString(trimmed) {
			return classified{class: lineSection}
		}
		if m := operationRe.FindStringSubmatch(trimmed); m != nil {
			return classified{class: lineOperation, attr: attrCapture{
				visibility: m[1],
				name:       m[2],
				typ:        strings.TrimSpace(m[4]),
			}}
		}
		if m := attributeRe.FindStringSubmatch(trimmed); m != nil {
			return classified{class: lineAttribute, attr: attrCapture{
				visibility:   m[1],
				name:         m[2],
				typ:          strings.TrimSpace(m[3]),
				multiplicity: strings.TrimSpace(m[4]),
			}}
		}
		return classified{class: lineUnknown}
	}

	if m := actorRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: lineActor, name: firstOf(m[1], m[2]), alias: m[3]}
	}
	if m := useCaseRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: lineUseCase, name: firstOf(m[1], m[2]), alias: m[3]}
	}
	if m := useCaseAltRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: lineUseCase, name: strings.TrimSpace(m[1]), alias: m[2]}
	}
	if m := typeDeclRe.FindStringSubmatch(trimmed); m != nil {
		return classified{
			class:   lineTypeDecl,
			kind:    m[1],
			name:    firstOf(m[2], m[3]),
			alias:   m[4],
			opening: m[5] == "{",
		}
	}
	if m := packageRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: linePackageDecl, name: firstOf(m[1], m[2]), opening: m[3] == "{"}
	}
	if m := participantRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: lineParticipant, name: firstOf(m[2], m[3]), alias: m[4]}
	}
	if m := relationRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: lineRelation, rel: relCapture{
			src:     m[1],
			srcMult: m[2],
			arrow:   m[3],
			dstMult: m[4],
			dst:     m[5],
			label:   strings.TrimSpace(m[6]),
		}}
	}
	if m := messageRe.FindStringSubmatch(trimmed); m != nil {
		src, dst := m[1], m[3]
		if strings.HasPrefix(m[2], "<") {
			src, dst = dst, src
		}
		return classified{class: lineMessage, rel: relCapture{src: src, dst: dst, label: strings.TrimSpace(m[4])}}
	}
	if m := activityLineRe.FindStringSubmatch(trimmed); m != nil {
		return classified{class: lineActivityAction, name: strings.TrimSpace(m[1])}
	}
	if activityFlowRe.MatchString(trimmed) {
		return classified{class: lineActivityFlow}
	}

	return classified{class: lineUnknown}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
