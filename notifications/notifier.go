// Package notifications sends operational alerts (sales, refunds, security events) to admins.
// Delivery is best-effort: callers never see a send failure.
package notifications

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/Govind-619/StudyHub/utils"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Notifier delivers a single pre-formatted alert
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NopNotifier drops every alert. Used when no bot token is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }

// TelegramNotifier posts alerts to one admin chat
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramNotifier connects to the Bot API with token
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	disablePreview := true
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	})
	return err
}

// sendTimeout bounds one background send
const sendTimeout = 10 * time.Second

// Send delivers text in the background and only logs failures
func Send(n Notifier, text string) {
	if n == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.LogError("Notifier panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.Notify(ctx, text); err != nil {
			utils.LogError("Failed to send notification: %v", err)
		}
	}()
}

// Escape makes user-supplied text safe inside an HTML-mode message
func Escape(s string) string {
	return html.EscapeString(s)
}
