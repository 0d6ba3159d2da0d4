package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

// sender is the part of tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends notifications as Telegram messages. The recipient is a chat id.
type TelegramNotifier struct {
	api sender
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Telegram notifier authorized", "account", api.Self.UserName)
	return &TelegramNotifier{api: api}, nil
}

func (n *TelegramNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid telegram chat id %q", recipient))
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewDeliveryError(err, "telegram")
	}

	text := fmt.Sprintf("*%s*\n\n%s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, subject),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, body))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		return apperrors.NewDeliveryError(err, "telegram").WithContext("chat_id", chatID)
	}
	return nil
}
