package notify

import (
	"context"
	"fmt"
	"time"

	"firewatch/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of tgbotapi.BotAPI used for alerts.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
	loc    *time.Location
}

// NewTelegramNotifier authenticates the bot token and targets chatID.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: chatID, loc: time.Local}, nil
}

// Notify sends the formatted alert.
func (n *TelegramNotifier) Notify(ctx context.Context, event *model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(event, n.loc))
	msg.DisableWebPagePreview = event.ImageURL == ""
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}
