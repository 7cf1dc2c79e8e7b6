// Package notify delivers reminders once their fire time arrives.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tartampluch/go-remind/internal/config"
)

// Notification is a fired reminder handed to a Sender.
type Notification struct {
	ID     string
	FireAt time.Time
	Title  string
	Body   string
}

// Sender delivers a notification to the user.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the structured log. It is always
// enabled so fired reminders are visible even without a chat integration.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, config.MsgNotifFired,
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyID, n.ID,
		config.LogKeyFireAt, n.FireAt,
		config.LogKeyName, n.Title,
		config.LogKeyValue, n.Body,
	)
	return nil
}

// MultiSender fans a notification out to every sender. All senders are
// tried; their errors are joined.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
