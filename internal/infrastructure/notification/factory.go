package notification

import (
	"fmt"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/infrastructure/email"
	"supportdesk/internal/shared/config"
	"supportdesk/internal/shared/logger"
)

const (
	TransportLog     = "log"
	TransportWebhook = "webhook"
	TransportEmail   = "email"
)

// NewTransport builds the transport named by cfg.Transport.
func NewTransport(cfg *config.NotificationConfig, log logger.Interface) (notification.Transport, error) {
	switch cfg.Transport {
	case "", TransportLog:
		return NewLogTransport(log), nil
	case TransportWebhook:
		if cfg.Webhook.URL == "" {
			return nil, fmt.Errorf("notification.webhook.url is required for the webhook transport")
		}
		return NewWebhookTransport(cfg.Webhook, log), nil
	case TransportEmail:
		if cfg.Email.SMTPHost == "" || cfg.Email.FromAddress == "" {
			return nil, fmt.Errorf("notification.email.smtp_host and from_address are required for the email transport")
		}
		return email.NewSMTPTransport(cfg.Email, log), nil
	default:
		return nil, fmt.Errorf("unknown notification transport: %s", cfg.Transport)
	}
}
