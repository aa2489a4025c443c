package push

import (
	"alcyxob/fitcoach/internal/domain"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender pushes to the chat a user linked via PUT /me/telegram.
type TelegramSender struct {
	bot chattableSender
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSender{bot: botAPI}, nil
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(_ context.Context, to *domain.User, msg Message) error {
	if to.TelegramChatID == nil {
		return ErrNoAddress
	}
	m := tgbotapi.NewMessage(*to.TelegramChatID, msg.Text())
	m.DisableWebPagePreview = true
	_, err := t.bot.Send(m)
	return err
}
