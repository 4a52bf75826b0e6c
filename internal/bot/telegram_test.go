package bot

import (
	"context"
	"log/slog"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

// A nil API makes any attempted send panic, so these tests double as
// proof that the early returns happen before network traffic.
func newSendlessBot(allowedIDs []int64) *TelegramBot {
	ctrl, _ := newTestController(&fakeRefiner{}, &fakeTracker{})
	return NewTelegramBot(nil, ctrl, nil, allowedIDs, slog.New(slog.DiscardHandler))
}

func TestWhitespaceMessageSendsNothing(t *testing.T) {
	b := newSendlessBot(nil)

	msg := &tgbotapi.Message{
		Text: "   \n ",
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 7},
	}

	assert.NotPanics(t, func() {
		b.handleMessage(context.Background(), msg)
	}, "whitespace-only text must not reach the API, not even as a placeholder")
}

func TestUnknownUserIdeaIgnoredSilently(t *testing.T) {
	b := newSendlessBot([]int64{1})

	msg := &tgbotapi.Message{
		Text: "an idea from a stranger",
		From: &tgbotapi.User{ID: 99},
		Chat: &tgbotapi.Chat{ID: 99},
	}

	assert.NotPanics(t, func() {
		b.handleMessage(context.Background(), msg)
	}, "non-allow-listed ideas are dropped without a reply")
}

func TestPermitted(t *testing.T) {
	assert.True(t, newSendlessBot(nil).permitted(42), "empty allow-list permits everyone")
	assert.True(t, newSendlessBot([]int64{42}).permitted(42))
	assert.False(t, newSendlessBot([]int64{42}).permitted(7))
}
