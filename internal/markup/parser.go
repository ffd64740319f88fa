package markup

import (
	"bufio"
	"fmt"
	"strings"

	"tracekg/internal/ident"
	"tracekg/internal/model"
)

func findRawRefs(s string) []string {
	return ident.FindRefs(s)
}

// Parser turns diagram markup texts into node/edge batches. A single Parser
// is used for one build run: class names declared in earlier artifacts are
// remembered so sequence diagram participants can be associated with them.
type Parser struct {
	// known maps a declared element name to the label it was declared with,
	// accumulated across Parse calls within one run.
	known map[string]model.Label
}

// NewParser creates a parser for one build run.
func NewParser() *Parser {
	return &Parser{known: make(map[string]model.Label)}
}

// Parse extracts entities and relationships from one artifact text.
//
// source names the artifact for warnings (and supplies the use-case id for
// activity diagrams); kind selects the grammar profile, KindAuto infers it.
// Unrecognized lines become warnings; Parse never fails on malformed input.
func (p *Parser) Parse(source, text string, kind Kind, stage model.Stage) *model.Batch {
	if strings.HasSuffix(strings.ToLower(source), ".md") {
		if blocks := ExtractFences(text); len(blocks) > 0 {
			text = strings.Join(blocks, "\n")
		}
	}
	if kind == KindAuto {
		kind = DetectKind(source, text)
	}

	s := &parseState{
		parser: p,
		batch:  model.NewBatch(),
		source: source,
		kind:   kind,
		stage:  stage,
	}

	if kind == KindActivity {
		s.activityUC = p.useCaseFromSource(source, s.batch, stage)
	}

	lineNo := 0
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		s.consume(lineNo, scanner.Text())
	}

	s.finish()
	return s.batch
}

// useCaseFromSource infers the owning use case of an activity diagram from
// its file name (UC-02-sign-in.puml). Returns "" when the name carries none.
func (p *Parser) useCaseFromSource(source string, b *model.Batch, stage model.Stage) string {
	refs := ident.FindRefs(source)
	if len(refs) == 0 {
		b.Warn(model.WarnCoverageGap, source, 0, "activity diagram names no use case")
		return ""
	}
	id, err := ident.Normalize(refs[0])
	if err != nil {
		b.Warn(model.WarnNormalization, source, 0, err.Error())
		return ""
	}
	b.AddNode(model.Node{Label: model.LabelUseCase, Key: id, Props: map[string]interface{}{
		"stage": string(stage),
	}})
	return id
}

// parseState is the per-artifact line consumer.
type parseState struct {
	parser *Parser
	batch  *model.Batch
	source string
	kind   Kind
	stage  model.Stage

	currentClass      string            // class/interface block being read
	currentClassAttrs []model.Attribute
	currentComponent  string            // package block being read
	activityUC        string            // owning use case for activity diagrams
	participants      map[string]bool
}

func (s *parseState) consume(lineNo int, raw string) {
	c := classify(raw, s.currentClass != "")

	switch c.class {
	case lineBlank, lineComment, lineDirective, lineSection, lineActivityFlow:
		// Recognized, nothing to extract.

	case lineActor:
		// Actors scope requirements but are not graph entities.

	case lineUseCase:
		s.addUseCase(lineNo, c.name, c.alias)

	case lineTypeDecl:
		s.openType(lineNo, c)

	case linePackageDecl:
		s.openPackage(c)

	case lineBlockEnd:
		s.closeBlock()

	case lineAttribute:
		if s.currentClass != "" {
			s.currentClassAttrs = append(s.currentClassAttrs, model.Attribute{
				Name:         c.attr.name,
				Type:         c.attr.typ,
				Multiplicity: c.attr.multiplicity,
			})
		}

	case lineOperation:
		s.addOperation(c.attr.name)

	case lineTraceMarker:
		s.addTraces(lineNo, c.refs)

	case lineRelation:
		s.addRelation(lineNo, c.rel)

	case lineParticipant:
		s.addParticipant(firstOf(c.alias, c.name))

	case lineMessage:
		s.addMessage(c.rel)

	case lineActivityAction:
		s.addAction(c.name)

	case lineUnknown:
		s.batch.Warn(model.WarnUnrecognizedLine, s.source, lineNo,
			fmt.Sprintf("unrecognized line: %s", strings.TrimSpace(raw)))
	}
}

// addUseCase records a use-case declaration. The canonical id comes from the
// alias when it is a UC token, otherwise from a UC reference inside the
// display name. Declarations carrying no identifier are skipped with a
// warning rather than being renamed.
func (s *parseState) addUseCase(lineNo int, name, alias string) {
	token := alias
	if token == "" {
		if refs := ident.FindRefs(name); len(refs) > 0 {
			token = refs[0]
		}
	}
	if token == "" {
		s.batch.Warn(model.WarnNormalization, s.source, lineNo,
			fmt.Sprintf("use case %q has no UC identifier", name))
		return
	}

	id, err := ident.Normalize(token)
	if err != nil {
		s.batch.Warn(model.WarnNormalization, s.source, lineNo, err.Error())
		return
	}

	s.batch.AddNode(model.Node{Label: model.LabelUseCase, Key: id, Props: map[string]interface{}{
		"name":  name,
		"stage": string(s.stage),
	}})
}

func (s *parseState) openType(lineNo int, c classified) {
	label := model.LabelClass
	switch c.kind {
	case "interface":
		label = model.LabelInterface
	case "component":
		label = model.LabelComponent
	}

	name := firstOf(c.alias, c.name)
	s.parser.known[name] = label

	props := map[string]interface{}{
		"name":  c.name,
		"stage": string(s.stage),
	}
	s.batch.AddNode(model.Node{Label: label, Key: name, Props: props})

	if s.currentComponent != "" {
		s.batch.AddEdge(model.Edge{
			Type:     model.EdgePartOf,
			SrcLabel: label, SrcKey: name,
			DstLabel: model.LabelComponent, DstKey: s.currentComponent,
		})
	}

	if c.opening {
		if s.currentClass != "" {
			s.batch.Warn(model.WarnUnrecognizedLine, s.source, lineNo,
				fmt.Sprintf("nested block for %q inside %q", name, s.currentClass))
			return
		}
		s.currentClass = name
		s.currentClassAttrs = nil
	}
}

func (s *parseState) openPackage(c classified) {
	s.parser.known[c.name] = model.LabelComponent
	s.batch.AddNode(model.Node{Label: model.LabelComponent, Key: c.name, Props: map[string]interface{}{
		"name":  c.name,
		"stage": string(s.stage),
	}})
	if c.opening {
		s.currentComponent = c.name
	}
}

func (s *parseState) closeBlock() {
	switch {
	case s.currentClass != "":
		if len(s.currentClassAttrs) > 0 {
			s.batch.AddNode(model.Node{
				Label: s.labelOf(s.currentClass),
				Key:   s.currentClass,
				Props: map[string]interface{}{"attributes": s.currentClassAttrs},
			})
		}
		s.currentClass = ""
		s.currentClassAttrs = nil
	case s.currentComponent != "":
		s.currentComponent = ""
	}
}

func (s *parseState) addOperation(name string) {
	if s.currentClass == "" {
		return
	}
	key := s.currentClass + "." + name
	s.batch.AddNode(model.Node{Label: model.LabelOperation, Key: key, Props: map[string]interface{}{
		"name": name,
	}})
	s.batch.AddEdge(model.Edge{
		Type:     model.EdgePartOf,
		SrcLabel: model.LabelOperation, SrcKey: key,
		DstLabel: s.labelOf(s.currentClass), DstKey: s.currentClass,
	})
}

// addTraces links the enclosing class to every use case referenced by a
// trace marker line.
func (s *parseState) addTraces(lineNo int, refs []string) {
	if s.currentClass == "" {
		return
	}
	for _, ref := range refs {
		id, err := ident.Normalize(ref)
		if err != nil {
			s.batch.Warn(model.WarnNormalization, s.source, lineNo, err.Error())
			continue
		}
		s.batch.AddNode(model.Node{Label: model.LabelUseCase, Key: id})
		s.batch.AddEdge(model.Edge{
			Type:     model.EdgeTrace,
			SrcLabel: s.labelOf(s.currentClass), SrcKey: s.currentClass,
			DstLabel: model.LabelUseCase, DstKey: id,
		})
	}
}

// addRelation maps relation arrows onto typed edges. Direction follows the
// markup convention that the generalization/aggregation head sits on the
// left: Base <|-- Derived yields Derived INHERITS Base, Whole *-- Part
// yields Part PART_OF Whole. Plain associations fold into DEPENDS_ON.
func (s *parseState) addRelation(lineNo int, r relCapture) {
	if s.kind == KindUseCase {
		// Actor associations in use-case diagrams carry no design semantics.
		return
	}
	if s.kind == KindSequence || s.kind == KindActivity {
		// Arrow lines in behavioral diagrams are messages, not structure.
		s.addMessage(r)
		return
	}

	var typ model.EdgeType
	src, dst := r.src, r.dst

	switch r.arrow {
	case "<|--", "<|..":
		typ = model.EdgeInherits
		src, dst = r.dst, r.src
	case "*--", "o--":
		typ = model.EdgePartOf
		src, dst = r.dst, r.src
	case "--*", "--o":
		typ = model.EdgePartOf
	case "..>", "-->", "--", "..":
		typ = model.EdgeDependsOn
	case "<..", "<--":
		typ = model.EdgeDependsOn
		src, dst = r.dst, r.src
	default:
		s.batch.Warn(model.WarnUnrecognizedLine, s.source, lineNo, "unsupported arrow: "+r.arrow)
		return
	}

	props := map[string]interface{}{}
	if r.label != "" {
		props["label"] = r.label
	}
	if r.srcMult != "" {
		props["srcMultiplicity"] = r.srcMult
	}
	if r.dstMult != "" {
		props["dstMultiplicity"] = r.dstMult
	}
	if len(props) == 0 {
		props = nil
	}

	s.batch.AddNode(model.Node{Label: s.labelOf(src), Key: src})
	s.batch.AddNode(model.Node{Label: s.labelOf(dst), Key: dst})
	s.batch.AddEdge(model.Edge{
		Type:     typ,
		SrcLabel: s.labelOf(src), SrcKey: src,
		DstLabel: s.labelOf(dst), DstKey: dst,
		Props:    props,
	})
}

// addParticipant records a sequence participant. Participants are node
// discovery only; a participant matching a class declared earlier in the
// run merges into that class, others are remembered locally so messages
// between them can be checked.
func (s *parseState) addParticipant(name string) {
	if s.participants == nil {
		s.participants = make(map[string]bool)
	}
	s.participants[name] = true

	if label, ok := s.parser.known[name]; ok {
		s.batch.AddNode(model.Node{Label: label, Key: name})
	}
}

// addMessage records a sequence message. Messages only become DEPENDS_ON
// edges when both participants are classes already known to the run;
// messages touching undeclared participants are node discovery only.
func (s *parseState) addMessage(r relCapture) {
	srcLabel, srcKnown := s.parser.known[r.src]
	dstLabel, dstKnown := s.parser.known[r.dst]
	if !srcKnown || !dstKnown || r.src == r.dst {
		return
	}
	s.batch.AddNode(model.Node{Label: srcLabel, Key: r.src})
	s.batch.AddNode(model.Node{Label: dstLabel, Key: r.dst})
	s.batch.AddEdge(model.Edge{
		Type:     model.EdgeDependsOn,
		SrcLabel: srcLabel, SrcKey: r.src,
		DstLabel: dstLabel, DstKey: r.dst,
	})
}

// addAction records an activity step as an Operation owned by the
// diagram's use case.
func (s *parseState) addAction(action string) {
	if s.activityUC == "" {
		return
	}
	key := s.activityUC + ":" + slug(action)
	s.batch.AddNode(model.Node{Label: model.LabelOperation, Key: key, Props: map[string]interface{}{
		"name": action,
	}})
	s.batch.AddEdge(model.Edge{
		Type:     model.EdgePartOf,
		SrcLabel: model.LabelOperation, SrcKey: key,
		DstLabel: model.LabelUseCase, DstKey: s.activityUC,
	})
}

func (s *parseState) finish() {
	// An unclosed block still flushes its attributes.
	if s.currentClass != "" {
		s.closeBlock()
	}
}

// labelOf resolves the label an element name was declared with, defaulting
// to Class for names only seen in relations.
func (s *parseState) labelOf(name string) model.Label {
	if label, ok := s.parser.known[name]; ok {
		return label
	}
	s.parser.known[name] = model.LabelClass
	return model.LabelClass
}

func slug(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(s))
	for strings.Contains(mapped, "--") {
		mapped = strings.ReplaceAll(mapped, "--", "-")
	}
	return strings.Trim(mapped, "-")
}
