package issue

import (
	"strings"
	"time"
)

// Type classifies an issue draft. The set is closed: anything the
// refinement engine reports outside it collapses to TypeFeature.
type Type string

const (
	TypeFeature  Type = "feature"
	TypeFix      Type = "fix"
	TypeRefactor Type = "refactor"
	TypeDocs     Type = "docs"
	TypeChore    Type = "chore"
	TypeTest     Type = "test"
)

// Priority is one of P0, P1, P2.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// DefaultPriority is applied when the engine omits or mangles the priority.
const DefaultPriority = PriorityP2

// DefaultPhase is applied when the engine omits the phase.
const DefaultPhase = 1

// typeInfo carries the per-type vocabulary: the short label token used on
// the tracker, the Korean display name, the preview emoji and the field
// names the body template expects.
type typeInfo struct {
	label    string
	display  string
	emoji    string
	required []string
}

var typeInfos = map[Type]typeInfo{
	TypeFeature:  {label: "feat", display: "기능", emoji: "✨", required: []string{"goal", "tasks", "acceptance"}},
	TypeFix:      {label: "fix", display: "버그 수정", emoji: "🐛", required: []string{"symptom", "cause", "tasks", "verification"}},
	TypeRefactor: {label: "refactor", display: "리팩터링", emoji: "♻️", required: []string{"motivation", "scope", "tasks"}},
	TypeDocs:     {label: "docs", display: "문서", emoji: "📝", required: []string{"audience", "outline"}},
	TypeChore:    {label: "chore", display: "유지보수", emoji: "🔧", required: []string{"description", "tasks"}},
	TypeTest:     {label: "test", display: "테스트", emoji: "✅", required: []string{"target", "cases"}},
}

// typeAliases maps engine-reported spellings onto the closed set.
var typeAliases = map[string]Type{
	"feature":  TypeFeature,
	"feat":     TypeFeature,
	"fix":      TypeFix,
	"bug":      TypeFix,
	"bugfix":   TypeFix,
	"refactor": TypeRefactor,
	"docs":     TypeDocs,
	"doc":      TypeDocs,
	"chore":    TypeChore,
	"test":     TypeTest,
	"tests":    TypeTest,
}

// ParseType normalizes an engine-reported type string. Unrecognized or
// empty input falls back to TypeFeature.
func ParseType(s string) Type {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return TypeFeature
}

// ParsePriority normalizes an engine-reported priority. Anything outside
// P0/P1/P2 falls back to DefaultPriority.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityP0:
		return PriorityP0
	case PriorityP1:
		return PriorityP1
	case PriorityP2:
		return PriorityP2
	default:
		return DefaultPriority
	}
}

// ClampPhase forces the phase into the small positive range the board
// understands.
func ClampPhase(n int) int {
	if n < 1 || n > 9 {
		return DefaultPhase
	}
	return n
}

// Label returns the short label token ("feat", "fix", ...).
func (t Type) Label() string { return typeInfos[t].label }

// DisplayName returns the Korean display name.
func (t Type) DisplayName() string { return typeInfos[t].display }

// Emoji returns the preview emoji for the type.
func (t Type) Emoji() string { return typeInfos[t].emoji }

// RequiredFields returns the field names the type's body template renders,
// in template order.
func (t Type) RequiredFields() []string {
	req := typeInfos[t].required
	out := make([]string, len(req))
	copy(out, req)
	return out
}

// Types returns the closed type set in a stable order.
func Types() []Type {
	return []Type{TypeFeature, TypeFix, TypeRefactor, TypeDocs, TypeChore, TypeTest}
}

// Draft is a pending issue proposal awaiting user confirmation. Drafts
// live only in the draft store; they are never persisted.
type Draft struct {
	ID           string
	OwnerID      int64
	Type         Type
	Title        string
	Body         string
	Phase        int
	Priority     Priority
	OriginalText string
	CreatedAt    time.Time
}

// TrackerTitle is the title submitted to the tracker, label-prefixed the
// way the board expects.
func (d *Draft) TrackerTitle() string {
	return "[" + d.Type.Label() + "] " + d.Title
}
