// Package email sends ticket reply notifications over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/shared/config"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/services/markdown"
)

var ErrNoRecipient = errors.New("no recipient email address")

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPTransport is a notification transport that emails the ticket owner.
type SMTPTransport struct {
	config   config.EmailConfig
	sender   mailSender
	renderer markdown.Renderer
	logger   logger.Interface
}

func NewSMTPTransport(cfg config.EmailConfig, log logger.Interface) *SMTPTransport {
	return &SMTPTransport{
		config:   cfg,
		sender:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		renderer: markdown.NewRenderer(),
		logger:   log,
	}
}

var _ notification.Transport = (*SMTPTransport)(nil)

// Send delivers one email. gomail has no context support, so a cancelled ctx abandons
// the in-flight send rather than aborting it.
func (s *SMTPTransport) Send(ctx context.Context, userID, title, body string, metadata map[string]string) error {
	to := metadata[notification.MetaUserEmail]
	if to == "" {
		return fmt.Errorf("user %s: %w", userID, ErrNoRecipient)
	}

	m, err := s.buildMessage(to, title, body, metadata)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sender.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}

func (s *SMTPTransport) buildMessage(to, title, body string, metadata map[string]string) (*gomail.Message, error) {
	text := metadata[notification.MetaText]
	if text == "" {
		text = body
	}

	rendered, err := s.renderer.Render(text)
	if err != nil {
		return nil, err
	}

	var htmlBody strings.Builder
	htmlBody.WriteString("<html><body>")
	fmt.Fprintf(&htmlBody, "<h2>%s</h2>", html.EscapeString(title))
	htmlBody.WriteString(rendered)
	if img := metadata[notification.MetaImageURL]; img != "" {
		fmt.Fprintf(&htmlBody, `<p><img src="%s" alt="attachment" style="max-width:100%%"></p>`, html.EscapeString(img))
	}
	htmlBody.WriteString("</body></html>")

	plainBody := title + "\n\n" + text
	if img := metadata[notification.MetaImageURL]; img != "" {
		plainBody += "\n\n" + img
	}

	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromAddress)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", title)
	if ticketID := metadata[notification.MetaTicketID]; ticketID != "" {
		m.SetHeader("X-Ticket-ID", ticketID)
	}
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody.String())
	return m, nil
}
