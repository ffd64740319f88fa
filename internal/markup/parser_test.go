package markup

import (
	"testing"

	"tracekg/internal/model"
)

func findNode(b *model.Batch, label model.Label, key string) *model.Node {
	for i := range b.Nodes {
		if b.Nodes[i].Label == label && b.Nodes[i].Key == key {
			return &b.Nodes[i]
		}
	}
	return nil
}

func findEdge(b *model.Batch, typ model.EdgeType, srcKey, dstKey string) *model.Edge {
	for i := range b.Edges {
		e := &b.Edges[i]
		if e.Type == typ && e.SrcKey == srcKey && e.DstKey == dstKey {
			return e
		}
	}
	return nil
}

func TestParseUseCaseDiagram(t *testing.T) {
	text := `@startuml
actor Student
actor "Course Admin" as Admin
usecase "Sign in" as UC-02
usecase "Enroll in course" as UC4
(Browse catalog) as UC-07
Student --> UC-02
Admin --> UC4
@enduml`

	p := NewParser()
	b := p.Parse("use-case-overview.puml", text, KindUseCase, model.StageRequirement)

	for _, id := range []string{"UC02", "UC04", "UC07"} {
		node := findNode(b, model.LabelUseCase, id)
		if node == nil {
			t.Fatalf("missing UseCase node %s", id)
		}
	}

	if got := findNode(b, model.LabelUseCase, "UC02").Props["name"]; got != "Sign in" {
		t.Errorf("UC02 name = %v", got)
	}
	if got := findNode(b, model.LabelUseCase, "UC02").Props["stage"]; got != "requirement" {
		t.Errorf("UC02 stage = %v", got)
	}

	// Actor associations produce no edges.
	if len(b.Edges) != 0 {
		t.Errorf("use-case diagram produced %d edges, want 0", len(b.Edges))
	}
	if len(b.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", b.Warnings)
	}
}

func TestParseUseCaseWithoutIdentifier(t *testing.T) {
	p := NewParser()
	b := p.Parse("uc.puml", `usecase "Some unnumbered flow"`, KindUseCase, model.StageRequirement)

	if len(b.Nodes) != 0 {
		t.Errorf("nodes = %v, want none", b.Nodes)
	}
	if len(b.Warnings) != 1 || b.Warnings[0].Kind != model.WarnNormalization {
		t.Errorf("warnings = %v, want one normalization warning", b.Warnings)
	}
}

func TestParseClassDiagram(t *testing.T) {
	text := `@startuml
class SignInController {
  - attempts : int
  + credentials : Credentials [1]
  + login(user) : bool
  .. [UC-02] ..
}
class SessionStore
interface Authenticator
SignInController ..> SessionStore
Authenticator <|-- SignInController
SignInController "1" -- "0..*" AuditLog : writes
@enduml`

	p := NewParser()
	b := p.Parse("design-class.puml", text, KindClass, model.StageDesign)

	cls := findNode(b, model.LabelClass, "SignInController")
	if cls == nil {
		t.Fatal("missing Class SignInController")
	}
	attrs, ok := cls.Props["attributes"].([]model.Attribute)
	if !ok || len(attrs) != 2 {
		t.Fatalf("attributes = %#v, want 2 entries", cls.Props["attributes"])
	}
	if attrs[0].Name != "attempts" || attrs[0].Type != "int" {
		t.Errorf("attr[0] = %+v", attrs[0])
	}
	if attrs[1].Multiplicity != "1" {
		t.Errorf("attr[1].Multiplicity = %q", attrs[1].Multiplicity)
	}

	if findNode(b, model.LabelInterface, "Authenticator") == nil {
		t.Error("missing Interface Authenticator")
	}
	if findNode(b, model.LabelOperation, "SignInController.login") == nil {
		t.Error("missing Operation SignInController.login")
	}

	if findEdge(b, model.EdgeTrace, "SignInController", "UC02") == nil {
		t.Error("missing TRACE edge from trace marker")
	}
	if findEdge(b, model.EdgeDependsOn, "SignInController", "SessionStore") == nil {
		t.Error("missing DEPENDS_ON edge")
	}
	if findEdge(b, model.EdgeInherits, "SignInController", "Authenticator") == nil {
		t.Error("missing INHERITS edge (derived -> base)")
	}

	assoc := findEdge(b, model.EdgeDependsOn, "SignInController", "AuditLog")
	if assoc == nil {
		t.Fatal("missing folded association edge")
	}
	if assoc.Props["dstMultiplicity"] != "0..*" {
		t.Errorf("dstMultiplicity = %v", assoc.Props["dstMultiplicity"])
	}
	if assoc.Props["label"] != "writes" {
		t.Errorf("label = %v", assoc.Props["label"])
	}

	if len(b.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", b.Warnings)
	}
}

func TestParseTraceMarkerVariants(t *testing.T) {
	tests := []struct {
		name    string
		marker  string
		wantIDs []string
	}{
		{"single hyphenated", "[UC-02]", []string{"UC02"}},
		{"bare", "[UC02]", []string{"UC02"}},
		{"multiple", "[UC-01, UC-02]", []string{"UC01", "UC02"}},
		{"mixed spellings", "[UC-1, UC02]", []string{"UC01", "UC02"}},
		{"annotation prefix", "Trace: [UC-03]", []string{"UC03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "class Foo {\n" + tt.marker + "\n}\n"
			b := NewParser().Parse("c.puml", text, KindClass, model.StageDesign)

			for _, id := range tt.wantIDs {
				if findEdge(b, model.EdgeTrace, "Foo", id) == nil {
					t.Errorf("missing TRACE Foo -> %s", id)
				}
				if findNode(b, model.LabelUseCase, id) == nil {
					t.Errorf("missing UseCase node %s", id)
				}
			}
		})
	}
}

func TestParsePackageDiagram(t *testing.T) {
	text := `package "Auth" {
  class SignInController
  class SessionStore
}
package "Catalog" {
  class CourseRepo
}
Auth ..> Catalog`

	b := NewParser().Parse("pkg.puml", text, KindPackage, model.StageDesign)

	if findNode(b, model.LabelComponent, "Auth") == nil {
		t.Fatal("missing Component Auth")
	}
	if findEdge(b, model.EdgePartOf, "SignInController", "Auth") == nil {
		t.Error("missing PART_OF SignInController -> Auth")
	}
	if findEdge(b, model.EdgePartOf, "CourseRepo", "Catalog") == nil {
		t.Error("missing PART_OF CourseRepo -> Catalog")
	}
	if findEdge(b, model.EdgeDependsOn, "Auth", "Catalog") == nil {
		t.Error("missing DEPENDS_ON Auth -> Catalog")
	}
}

func TestParseSequenceDiagram(t *testing.T) {
	p := NewParser()

	// Declare classes first, as a build run over a class diagram would.
	p.Parse("cls.puml", "class SignInController\nclass SessionStore", KindClass, model.StageDesign)

	text := `participant SignInController
participant SessionStore
participant Browser
SignInController -> SessionStore : createSession
Browser -> SignInController : submit`

	b := p.Parse("seq.puml", text, KindSequence, model.StageDesign)

	// Known participants merge into their classes.
	if findNode(b, model.LabelClass, "SignInController") == nil {
		t.Error("known participant should surface as Class node")
	}

	// Messages between known classes fold into DEPENDS_ON.
	if findEdge(b, model.EdgeDependsOn, "SignInController", "SessionStore") == nil {
		t.Error("missing DEPENDS_ON from message between known classes")
	}

	// Unknown participants contribute no edges.
	if findEdge(b, model.EdgeDependsOn, "Browser", "SignInController") != nil {
		t.Error("message from unknown participant must not create an edge")
	}
}

func TestParseActivityDiagram(t *testing.T) {
	text := `@startuml
start
:Validate credentials;
if (valid?) then
:Create session;
else
:Show error;
endif
stop
@enduml`

	b := NewParser().Parse("UC-02-sign-in-activity.puml", text, KindActivity, model.StageRequirement)

	if findNode(b, model.LabelUseCase, "UC02") == nil {
		t.Fatal("activity diagram should surface its use case from the file name")
	}

	op := findNode(b, model.LabelOperation, "UC02:validate-credentials")
	if op == nil {
		t.Fatal("missing Operation for action")
	}
	if op.Props["name"] != "Validate credentials" {
		t.Errorf("operation name = %v", op.Props["name"])
	}
	if findEdge(b, model.EdgePartOf, "UC02:create-session", "UC02") == nil {
		t.Error("missing PART_OF action -> use case")
	}
	if len(b.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", b.Warnings)
	}
}

func TestMalformedLineResilience(t *testing.T) {
	// One unparsable line among nine valid ones: exactly one warning and
	// all expected records, never an abort.
	text := `@startuml
usecase "Sign in" as UC-02
usecase "Enroll" as UC-03
class SignInController {
[UC-02]
}
%%% not a grammar production %%%
class EnrollService {
[UC-03]
}
@enduml`

	b := NewParser().Parse("mixed.puml", text, KindClass, model.StageDesign)

	if len(b.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly 1", b.Warnings)
	}
	if b.Warnings[0].Kind != model.WarnUnrecognizedLine {
		t.Errorf("warning kind = %v", b.Warnings[0].Kind)
	}
	if b.Warnings[0].Line != 7 {
		t.Errorf("warning line = %d, want 7", b.Warnings[0].Line)
	}

	wantNodes := []struct {
		label model.Label
		key   string
	}{
		{model.LabelUseCase, "UC02"},
		{model.LabelUseCase, "UC03"},
		{model.LabelClass, "SignInController"},
		{model.LabelClass, "EnrollService"},
	}
	for _, w := range wantNodes {
		if findNode(b, w.label, w.key) == nil {
			t.Errorf("missing node %s:%s", w.label, w.key)
		}
	}
	if findEdge(b, model.EdgeTrace, "SignInController", "UC02") == nil {
		t.Error("missing TRACE SignInController -> UC02")
	}
	if findEdge(b, model.EdgeTrace, "EnrollService", "UC03") == nil {
		t.Error("missing TRACE EnrollService -> UC03")
	}
}

func TestParseMarkdownFences(t *testing.T) {
	text := "# Design\n\nSome prose.\n\n```plantuml\nclass Foo {\n[UC-09]\n}\n```\n\nMore prose that is not markup.\n"

	b := NewParser().Parse("design-class.md", text, KindAuto, model.StageDesign)

	if findNode(b, model.LabelClass, "Foo") == nil {
		t.Fatal("missing class from fenced block")
	}
	if findEdge(b, model.EdgeTrace, "Foo", "UC09") == nil {
		t.Error("missing TRACE from fenced block")
	}
	// Prose outside fences must not generate warnings.
	if len(b.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", b.Warnings)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    Kind
	}{
		{"3_design/class-model.puml", "", KindClass},
		{"use-case-overview.puml", "", KindUseCase},
		{"UC-02-activity.puml", "", KindActivity},
		{"auth-sequence.puml", "", KindSequence},
		{"packages.puml", "", KindPackage},
		{"misc.puml", "usecase \"X\" as UC1", KindUseCase},
		{"misc.puml", ":Do thing;\n", KindActivity},
		{"misc.puml", "class Foo", KindClass},
	}

	for _, tt := range tests {
		if got := DetectKind(tt.path, tt.content); got != tt.want {
			t.Errorf("DetectKind(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExtractFences(t *testing.T) {
	text := "intro\n```plantuml\nclass A\n```\n```go\nfunc main() {}\n```\n```puml\nclass B\n```\n"
	blocks := ExtractFences(text)

	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if blocks[0] != "class A\n" || blocks[1] != "class B\n" {
		t.Errorf("blocks = %q", blocks)
	}
}
