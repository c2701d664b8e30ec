package notify

import (
	"context"

	"github.com/nkiryanov/minibank/internal/logger"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message to external service
type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// LogSender only logs messages. Used when no SMTP server configured
type LogSender struct {
	Logger logger.Logger
}

func (s LogSender) Send(_ context.Context, to string, subject string, body string) error {
	s.Logger.Info("Notification", "to", to, "subject", subject, "body", body)
	return nil
}
