package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegramSender is the part of the bot API the notifier uses.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier forwards error and warning notifications to an admin chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
	log    zerolog.Logger
}

// NewTelegramNotifier authorizes the bot token and targets chatID.
func NewTelegramNotifier(token string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("telegram notifier authorized")
	return &TelegramNotifier{bot: bot, chatID: chatID, log: logger}, nil
}

// Notify sends error and warning notifications; other levels are ignored.
func (t *TelegramNotifier) Notify(ctx context.Context, n Notification) {
	if n.Level != Error && n.Level != Warning {
		return
	}
	if t.chatID == 0 {
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(n))
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn().Err(err).Msg("failed to send telegram notification")
	}
}

func formatTelegram(n Notification) string {
	icon := "⚠️"
	if n.Level == Error {
		icon = "❌"
	}
	if n.Table != "" {
		return fmt.Sprintf("%s [%s] %s", icon, n.Table, n.Message)
	}
	return fmt.Sprintf("%s %s", icon, n.Message)
}

var _ Notifier = (*TelegramNotifier)(nil)
