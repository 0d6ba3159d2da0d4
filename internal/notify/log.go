package notify

import (
	"context"

	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

// LogNotifier writes notifications to the log instead of delivering them.
// It is used when no Telegram token is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	logger.WithContext(ctx).Info("Notification", "recipient", recipient, "subject", subject, "body", body)
	return nil
}
