// Package bot holds the draft lifecycle state machine and the Telegram
// transport that feeds it. The controller is transport-agnostic: it takes
// owner-keyed ideas and actions, drives the refinement and tracker
// boundaries, and answers with plain-text replies. No failure crosses back
// to the transport as an error.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wooix/ideabot/internal/audit"
	"github.com/wooix/ideabot/internal/draftstore"
	"github.com/wooix/ideabot/internal/issue"
	"github.com/wooix/ideabot/internal/refine"
	"github.com/wooix/ideabot/internal/tracker"
)

// User actions on a pending draft.
const (
	ActionCreate = "create"
	ActionRevise = "revise"
	ActionCancel = "cancel"
)

// previewBodyRunes bounds the body excerpt in the preview message.
const previewBodyRunes = 400

// failureDetailRunes bounds raw tracker error detail in user messages.
const failureDetailRunes = 200

// Refiner is the refinement boundary as the controller sees it.
type Refiner interface {
	Refine(ctx context.Context, idea string) (*refine.Result, error)
}

// Tracker is the issue-creation boundary as the controller sees it.
type Tracker interface {
	Create(ctx context.Context, title, body string, phase int, typeLabel string) (*tracker.CreatedIssue, error)
}

// Reply is what the controller wants said back to the user. When Offer is
// set, the transport attaches the create/revise/cancel affordances.
type Reply struct {
	Text  string
	Offer *ActionOffer
}

// ActionOffer asks the transport to render the three draft actions,
// carrying the draft ID so stale buttons can be detected.
type ActionOffer struct {
	DraftID string
}

// Controller drives a draft from idea to created issue. Per owner it is a
// two-state machine: no draft, or exactly one pending draft awaiting
// create/revise/cancel.
type Controller struct {
	store   *draftstore.Store
	refiner Refiner
	tracker Tracker
	audit   *audit.Log
	logger  *slog.Logger
}

// NewController wires the draft lifecycle together. The audit log may be
// nil.
func NewController(store *draftstore.Store, refiner Refiner, trk Tracker, auditLog *audit.Log, logger *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		refiner: refiner,
		tracker: trk,
		audit:   auditLog,
		logger:  logger,
	}
}

// HandleIdea refines free text into a draft and previews it. A new idea
// replaces any pending draft for the same owner; a refinement failure
// leaves existing state untouched.
func (c *Controller) HandleIdea(ctx context.Context, ownerID int64, text string) Reply {
	idea := strings.TrimSpace(text)
	if idea == "" {
		return Reply{}
	}

	result, err := c.refiner.Refine(ctx, idea)
	if err != nil {
		c.logger.Error("refinement failed", "owner_id", ownerID, "error", err)
		return Reply{Text: "❌ 아이디어 정제 중 오류가 발생했습니다. 다시 시도해주세요."}
	}

	draft := &issue.Draft{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Type:         result.Type,
		Title:        result.Title,
		Body:         issue.Render(result.Type, result.Fields),
		Phase:        result.Phase,
		Priority:     result.Priority,
		OriginalText: idea,
		CreatedAt:    time.Now().UTC(),
	}

	if prev, ok := c.store.Get(ownerID); ok {
		c.logger.Info("replacing pending draft", "owner_id", ownerID, "old_draft_id", prev.ID, "new_draft_id", draft.ID)
		c.writeAudit(audit.Record{Kind: audit.KindDraftReplaced, OwnerID: ownerID, DraftID: prev.ID, Title: prev.Title})
	}
	c.store.Put(draft)

	c.writeAudit(audit.Record{
		Kind:         audit.KindIdeaReceived,
		OwnerID:      ownerID,
		DraftID:      draft.ID,
		IssueType:    string(draft.Type),
		Title:        draft.Title,
		OriginalText: idea,
	})

	return Reply{
		Text:  formatPreview(draft),
		Offer: &ActionOffer{DraftID: draft.ID},
	}
}

// HandleAction applies one of the three draft actions. Unknown actions
// change no state; actions against a missing or superseded draft get a
// clarifying answer and cause no external call.
func (c *Controller) HandleAction(ctx context.Context, ownerID int64, action, draftID string) Reply {
	switch action {
	case ActionCancel:
		return c.cancel(ownerID, draftID)
	case ActionRevise:
		return c.revise(ownerID, draftID)
	case ActionCreate:
		return c.create(ctx, ownerID, draftID)
	default:
		c.logger.Warn("unknown action ignored", "owner_id", ownerID, "action", action)
		return Reply{Text: "알 수 없는 요청입니다."}
	}
}

func (c *Controller) cancel(ownerID int64, draftID string) Reply {
	d, ok := c.store.Get(ownerID)
	if ok && stale(d, draftID) {
		return c.staleReply(ownerID, "cancel", draftID, d.ID)
	}
	if ok {
		c.writeAudit(audit.Record{Kind: audit.KindDraftCanceled, OwnerID: ownerID, DraftID: d.ID, Title: d.Title})
	}
	c.store.Remove(ownerID)
	return Reply{Text: "❌ 취소되었습니다."}
}

func (c *Controller) revise(ownerID int64, draftID string) Reply {
	if d, ok := c.store.Get(ownerID); ok && stale(d, draftID) {
		return c.staleReply(ownerID, "revise", draftID, d.ID)
	}
	c.store.Remove(ownerID)
	return Reply{Text: "✏️ 수정하고 싶은 내용을 입력해주세요.\n원본 아이디어를 다시 보내주셔도 됩니다."}
}

func (c *Controller) create(ctx context.Context, ownerID int64, draftID string) Reply {
	draft, ok := c.store.Get(ownerID)
	if !ok {
		return Reply{Text: "❌ 초안을 찾을 수 없습니다. 아이디어를 다시 보내주세요."}
	}
	if stale(draft, draftID) {
		return c.staleReply(ownerID, "create", draftID, draft.ID)
	}

	created, err := c.tracker.Create(ctx, draft.TrackerTitle(), draft.Body, draft.Phase, draft.Type.Label())
	if err != nil {
		// The draft stays put: refinement is cheap to redo, tracker
		// submission is not, so the user may retry create as-is.
		c.logger.Error("issue creation failed", "owner_id", ownerID, "draft_id", draft.ID, "error", err)
		return Reply{Text: formatCreateFailure(err)}
	}

	c.store.Remove(ownerID)
	c.writeAudit(audit.Record{
		Kind:        audit.KindIssueCreated,
		OwnerID:     ownerID,
		DraftID:     draft.ID,
		IssueType:   string(draft.Type),
		Title:       draft.Title,
		IssueNumber: created.Number,
		IssueURL:    created.URL,
	})

	return Reply{Text: fmt.Sprintf(
		"✅ *Issue #%s 생성 완료!*\n\n📌 %s\n\n🔗 %s\n\nProject Inbox에 추가되었습니다.",
		created.Number, draft.Title, created.URL,
	)}
}

// stale reports whether an action's callback references a superseded
// draft. An empty draftID is treated as current for transports that do
// not carry one.
func stale(d *issue.Draft, draftID string) bool {
	return draftID != "" && draftID != d.ID
}

// staleReply answers a button press from a superseded preview. The
// current draft is left untouched.
func (c *Controller) staleReply(ownerID int64, action, staleID, currentID string) Reply {
	c.logger.Info("action on superseded draft ignored", "owner_id", ownerID, "action", action, "stale_draft_id", staleID, "current_draft_id", currentID)
	return Reply{Text: "❌ 초안을 찾을 수 없습니다. 최신 초안의 버튼을 사용해주세요."}
}

// formatPreview renders the draft preview: type line, phase/priority
// line, then a bounded body excerpt.
func formatPreview(d *issue.Draft) string {
	return fmt.Sprintf(
		"📝 *이슈 초안*\n\n%s [%s] %s\nPhase %d · %s\n\n%s",
		d.Type.Emoji(), d.Type.Label(), d.Title,
		d.Phase, d.Priority,
		issue.Truncate(d.Body, previewBodyRunes),
	)
}

// formatCreateFailure builds the user-facing tracker failure message with
// bounded raw detail.
func formatCreateFailure(err error) string {
	detail := err.Error()
	var cf *tracker.CreateFailure
	if errors.As(err, &cf) {
		detail = cf.Detail
	}
	return fmt.Sprintf("❌ Issue 생성 실패:\n%s\n\n다시 '등록'을 눌러 재시도할 수 있습니다.", issue.Truncate(detail, failureDetailRunes))
}

func (c *Controller) writeAudit(rec audit.Record) {
	if err := c.audit.Write(rec); err != nil {
		c.logger.Warn("audit write failed", "kind", rec.Kind, "error", err)
	}
}
