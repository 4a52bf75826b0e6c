// Package refine converts a free-text idea into a structured issue
// proposal by delegating to an external text-refinement engine. The
// engine is a black box invoked as a subprocess; this package owns the
// prompt, the timeout, and every bit of tolerance for the engine's
// free-form output.
package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wooix/ideabot/internal/issue"
)

// Result is the structured outcome of one refinement call. It is folded
// into a draft by the controller and not retained here.
type Result struct {
	Type     issue.Type
	Title    string
	Phase    int
	Priority issue.Priority
	Fields   map[string]string
}

// maxTitleRunes bounds the title for preview display.
const maxTitleRunes = 120

// Client drives the refinement engine.
type Client struct {
	caller Caller
	logger *slog.Logger
}

// NewClient creates a refinement client on top of a Caller.
func NewClient(caller Caller, logger *slog.Logger) *Client {
	return &Client{caller: caller, logger: logger}
}

// Refine turns a raw idea into a Result. Any engine-side problem — the
// process failing, timing out, or answering with text that holds no valid
// JSON object — comes back as a *Failure.
func (c *Client) Refine(ctx context.Context, idea string) (*Result, error) {
	prompt := buildPrompt(idea)

	response, err := c.caller.Call(ctx, prompt)
	if err != nil {
		return nil, failure("engine call", err)
	}

	result, err := parseResponse(response)
	if err != nil {
		c.logger.Warn("unparsable engine response", "error", err, "response_bytes", len(response))
		return nil, err
	}

	c.logger.Info("idea refined",
		"type", result.Type,
		"phase", result.Phase,
		"priority", result.Priority,
		"fields", len(result.Fields))
	return result, nil
}

// buildPrompt renders the fixed refinement prompt around the raw idea.
func buildPrompt(idea string) string {
	var sb strings.Builder

	sb.WriteString("다음 아이디어를 GitHub Issue 형식으로 정리해줘.\n\n")
	sb.WriteString("아이디어: ")
	sb.WriteString(idea)
	sb.WriteString("\n\n")
	sb.WriteString("다음 JSON 형식으로만 응답해줘 (다른 텍스트 없이):\n")
	sb.WriteString(`{
  "type": "feature/fix/refactor/docs/chore/test 중 하나",
  "title": "간결한 이슈 제목 (한국어, 50자 이내)",
  "phase": 1,
  "priority": "P0/P1/P2 중 하나",
  "fields": { 타입별 필드 (아래 참고), 값은 모두 문자열 }
}
`)
	sb.WriteString("\n타입별 fields 키:\n")
	for _, t := range issue.Types() {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", t, strings.Join(t.RequiredFields(), ", ")))
	}
	sb.WriteString("\nphase는 해당 Phase 번호 (1~4, 모르면 1). 작업 항목(tasks)은 \"- [ ] 항목\" 형식의 체크리스트로.\n")

	return sb.String()
}

// rawResult mirrors the JSON the engine is asked for, with loose typing
// where the engine is known to wobble.
type rawResult struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Phase    flexInt        `json:"phase"`
	Priority string         `json:"priority"`
	Fields   map[string]any `json:"fields"`
}

// flexInt accepts a JSON number or a numeric string. The prompt asks for
// a number, but the engine sometimes quotes it.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	// Engines occasionally emit a float like 2.0; keep the integer part.
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(int(fl))
		return nil
	}
	*f = 0
	return nil
}

// parseResponse extracts and decodes the engine's JSON, applying the
// defaulting rules: unknown type → feature, missing phase → 1, missing
// priority → P2. A missing title is the one hard failure; a draft without
// a title cannot be previewed or filed.
func parseResponse(response string) (*Result, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, failure("no JSON object in engine response", nil)
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, failure("invalid JSON in engine response", err)
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, failure("engine response has no title", nil)
	}

	fields := make(map[string]string, len(raw.Fields))
	for k, v := range raw.Fields {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case nil:
			// skip
		default:
			fields[k] = fmt.Sprintf("%v", val)
		}
	}

	return &Result{
		Type:     issue.ParseType(raw.Type),
		Title:    issue.Truncate(title, maxTitleRunes),
		Phase:    issue.ClampPhase(int(raw.Phase)),
		Priority: issue.ParsePriority(raw.Priority),
		Fields:   fields,
	}, nil
}
