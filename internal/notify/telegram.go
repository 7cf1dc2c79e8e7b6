package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tartampluch/go-remind/internal/config"
	"gopkg.in/telebot.v3"
)

// TelegramClient is the subset of *telebot.Bot used for delivery.
type TelegramClient interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramSender posts fired reminders to one Telegram chat.
type TelegramSender struct {
	client TelegramClient
	chat   *telebot.Chat
}

// NewTelegramBot creates a bot for sending only; it never starts polling.
func NewTelegramBot(token string) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: config.TelegramPollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTelegramInit, err)
	}
	slog.Info(config.MsgTelegramReady,
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyUser, bot.Me.Username,
	)
	return bot, nil
}

// NewTelegramSender targets chatID through client.
func NewTelegramSender(client TelegramClient, chatID int64) *TelegramSender {
	return &TelegramSender{client: client, chat: &telebot.Chat{ID: chatID}}
}

func (s *TelegramSender) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := fmt.Sprintf("*%s*\n%s", n.Title, n.Body)
	if _, err := s.client.Send(s.chat, text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSendFailed, err)
	}
	return nil
}
