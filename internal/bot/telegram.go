package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wooix/ideabot/internal/tracker"
)

// BoardLister reports the current project board contents for //status.
type BoardLister interface {
	BoardItems(ctx context.Context) ([]tracker.BoardItem, error)
}

// statusEmoji maps board column names to the marker shown in //status.
var statusEmoji = map[string]string{
	"Backlog":     "📥",
	"In progress": "🔵",
	"In review":   "🟡",
	"Done":        "✅",
}

const helpText = `👋 아이디어를 자유롭게 보내주세요.
정제된 이슈 초안을 만들어드립니다.

//status - 작업 현황 보기
//help - 도움말`

// TelegramBot receives updates over long polling and drives the controller.
// Each update is handled on its own goroutine so slow refinement calls do
// not block the poll loop.
type TelegramBot struct {
	api     *tgbotapi.BotAPI
	ctrl    *Controller
	board   BoardLister
	allowed map[int64]struct{}
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewTelegramBot wires a controller to the Telegram API. An empty allowed
// list permits every user.
func NewTelegramBot(api *tgbotapi.BotAPI, ctrl *Controller, board BoardLister, allowedIDs []int64, logger *slog.Logger) *TelegramBot {
	allowed := make(map[int64]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}
	return &TelegramBot{
		api:     api,
		ctrl:    ctrl,
		board:   board,
		allowed: allowed,
		logger:  logger,
	}
}

// Run polls for updates until ctx is canceled, then waits for in-flight
// handlers to finish.
func (b *TelegramBot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, u)
			}(update)
		}
	}
}

func (b *TelegramBot) permitted(userID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[userID]
	return ok
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, update.Message)
	}
}

func (b *TelegramBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() || strings.HasPrefix(text, "//") {
		if !b.permitted(userID) {
			b.send(chatID, "❌ 접근 권한이 없습니다.")
			return
		}
		b.handleCommand(ctx, chatID, text)
		return
	}

	// Plain text is an idea. Unknown users are ignored silently so the
	// bot does not advertise itself in group chats.
	if !b.permitted(userID) {
		b.logger.Warn("ignoring message from unknown user", "user_id", userID)
		return
	}

	thinking := b.send(chatID, "🤔 ...")

	reply := b.ctrl.HandleIdea(ctx, userID, text)
	if reply.Text == "" {
		return
	}

	out := tgbotapi.NewMessage(chatID, reply.Text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if reply.Offer != nil {
		out.ReplyMarkup = actionKeyboard(reply.Offer.DraftID)
	}
	if thinking != nil {
		edit := tgbotapi.NewEditMessageText(chatID, thinking.MessageID, reply.Text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		if reply.Offer != nil {
			kb := actionKeyboard(reply.Offer.DraftID)
			edit.ReplyMarkup = &kb
		}
		if _, err := b.api.Send(edit); err == nil {
			return
		}
		// Editing can fail when the placeholder was deleted; fall
		// through to a fresh message.
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("send failed", "error", err)
	}
}

func (b *TelegramBot) handleCommand(ctx context.Context, chatID int64, text string) {
	cmd := strings.TrimLeft(strings.Fields(text)[0], "/")
	switch cmd {
	case "start", "help":
		b.send(chatID, helpText)
	case "status":
		b.send(chatID, b.statusText(ctx))
	default:
		b.send(chatID, helpText)
	}
}

func (b *TelegramBot) statusText(ctx context.Context) string {
	items, err := b.board.BoardItems(ctx)
	if err != nil {
		b.logger.Error("board listing failed", "error", err)
		return "❌ 작업 현황을 불러오지 못했습니다."
	}
	if len(items) == 0 {
		return "📋 등록된 작업이 없습니다."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 작업 현황 (%d건)\n\n", len(items))
	for _, it := range items {
		emoji, ok := statusEmoji[it.Status]
		if !ok {
			emoji = "⬜"
		}
		fmt.Fprintf(&sb, "%s %s\n", emoji, it.Title)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *TelegramBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !b.permitted(cb.From.ID) {
		b.logger.Warn("ignoring callback from unknown user", "user_id", cb.From.ID)
		return
	}

	// Acknowledge the button press first so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack failed", "error", err)
	}

	action, draftID, _ := strings.Cut(cb.Data, ":")
	reply := b.ctrl.HandleAction(ctx, cb.From.ID, action, draftID)
	if reply.Text == "" {
		return
	}

	if cb.Message != nil {
		edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, reply.Text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(edit); err == nil {
			return
		}
		b.send(cb.Message.Chat.ID, reply.Text)
	}
}

func (b *TelegramBot) send(chatID int64, text string) *tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		b.logger.Error("send failed", "error", err)
		return nil
	}
	return &sent
}

func actionKeyboard(draftID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ 등록", ActionCreate+":"+draftID),
			tgbotapi.NewInlineKeyboardButtonData("✏️ 수정 요청", ActionRevise+":"+draftID),
			tgbotapi.NewInlineKeyboardButtonData("❌ 취소", ActionCancel+":"+draftID),
		),
	)
}
