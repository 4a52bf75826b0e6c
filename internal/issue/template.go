package issue

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MissingFieldPlaceholder replaces any field the refinement engine failed
// to supply. Rendering never errors: a hole in the input becomes this
// marker, not a failure.
const MissingFieldPlaceholder = "(내용 없음)"

// bodyTemplates holds one markdown body template per type. Placeholders
// use {{name}} and are substituted by Render.
var bodyTemplates = map[Type]string{
	TypeFeature: "## 목표\n\n{{goal}}\n\n## 작업 항목\n\n{{tasks}}\n\n## 완료 조건\n\n{{acceptance}}",
	TypeFix: "## 증상\n\n{{symptom}}\n\n## 원인\n\n{{cause}}\n\n## 작업 항목\n\n{{tasks}}\n\n## 검증\n\n{{verification}}",
	TypeRefactor: "## 동기\n\n{{motivation}}\n\n## 범위\n\n{{scope}}\n\n## 작업 항목\n\n{{tasks}}",
	TypeDocs:  "## 대상 독자\n\n{{audience}}\n\n## 목차\n\n{{outline}}",
	TypeChore: "## 설명\n\n{{description}}\n\n## 작업 항목\n\n{{tasks}}",
	TypeTest:  "## 대상\n\n{{target}}\n\n## 테스트 케이스\n\n{{cases}}",
}

var placeholderPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// Render produces the issue body for a type from a field mapping. It is
// pure and total: absent or empty fields render as MissingFieldPlaceholder,
// and a type without a template degrades to a flat field listing.
func Render(t Type, fields map[string]string) string {
	tmpl, ok := bodyTemplates[t]
	if !ok {
		return renderFieldList(fields)
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if v := strings.TrimSpace(fields[name]); v != "" {
			return v
		}
		return MissingFieldPlaceholder
	})
}

// renderFieldList is the degraded rendering path: a bulleted listing of
// whatever fields are present, in stable key order.
func renderFieldList(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return MissingFieldPlaceholder
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString("- **")
		sb.WriteString(k)
		sb.WriteString("**: ")
		sb.WriteString(strings.TrimSpace(fields[k]))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Truncate bounds s to max runes, appending "..." when it had to cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
