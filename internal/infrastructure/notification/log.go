package notification

import (
	"context"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/shared/logger"
)

// LogTransport only logs. It is used when no delivery channel is configured.
type LogTransport struct {
	logger logger.Interface
}

func NewLogTransport(log logger.Interface) *LogTransport {
	return &LogTransport{logger: log}
}

var _ notification.Transport = (*LogTransport)(nil)

func (t *LogTransport) Send(_ context.Context, userID, title, body string, metadata map[string]string) error {
	t.logger.Infow("notification",
		"user_id", userID,
		"title", title,
		"body", body,
		"ticket_id", metadata[notification.MetaTicketID],
	)
	return nil
}
