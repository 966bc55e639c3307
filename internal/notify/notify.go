package notify

import (
	"context"
	"errors"
	"log/slog"
)

// ErrSendFailure marks a notification that could not be delivered.
// It is transient: callers log it and retry later, never fail a request on it.
var ErrSendFailure = errors.New("notification send failed")

// Attachment is a file delivered alongside a notification.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Notification is one outbound message to one recipient.
type Notification struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers notifications. Implementations must honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender only logs; it is used when no mail relay is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrSendFailure, err)
	}
	s.logger.InfoContext(ctx, "notification (log only)",
		"to", n.To,
		"subject", n.Subject,
		"attachments", len(n.Attachments),
	)
	return nil
}
