package refine

import "strings"

// ExtractJSON pulls a JSON object out of free-form engine output. The
// prompt demands JSON only, but the engine is not contractually JSON-only:
// responses arrive wrapped in markdown fences, prefixed with prose, or
// both. Strategy: drop fence lines first, then take the substring between
// the first '{' and the last '}'.
//
// Returns the empty string when no object boundary is present.
func ExtractJSON(response string) string {
	stripped := stripFences(response)

	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return stripped[start : end+1]
}

// stripFences removes markdown code-fence delimiter lines, keeping their
// contents. A language tag on the opening fence ("```json") is part of the
// delimiter line and goes with it.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
