package email

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/shared/config"
	"supportdesk/internal/shared/logger"
)

type mockSender struct {
	DialAndSendFunc func(m ...*gomail.Message) error
	sent            []*gomail.Message
}

func (s *mockSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	if s.DialAndSendFunc != nil {
		return s.DialAndSendFunc(m...)
	}
	return nil
}

func newTestTransport(sender mailSender) *SMTPTransport {
	t := NewSMTPTransport(config.EmailConfig{
		SMTPHost:    "localhost",
		SMTPPort:    2525,
		FromAddress: "support@example.com",
		FromName:    "Support",
	}, logger.NewNop())
	t.sender = sender
	return t
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSMTPTransport_Send(t *testing.T) {
	sender := &mockSender{}
	transport := newTestTransport(sender)

	err := transport.Send(context.Background(), "u1", "Reply", "We **fixed** it", map[string]string{
		notification.MetaTicketID:  "t1",
		notification.MetaUserEmail: "dana@example.com",
		notification.MetaText:      "We **fixed** it",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	assert.Equal(t, []string{"dana@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"t1"}, sender.sent[0].GetHeader("X-Ticket-ID"))

	raw := render(t, sender.sent[0])
	assert.Contains(t, raw, "<strong>fixed</strong>")
	assert.Contains(t, raw, "text/plain")
}

func TestSMTPTransport_SendWithoutEmail(t *testing.T) {
	sender := &mockSender{}
	transport := newTestTransport(sender)

	err := transport.Send(context.Background(), "u1", "title", "body", map[string]string{})
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, sender.sent)
}

func TestSMTPTransport_SendFailure(t *testing.T) {
	sender := &mockSender{
		DialAndSendFunc: func(...*gomail.Message) error {
			return errors.New("535 authentication failed")
		},
	}
	transport := newTestTransport(sender)

	err := transport.Send(context.Background(), "u1", "title", "body", map[string]string{
		notification.MetaUserEmail: "dana@example.com",
	})
	assert.ErrorContains(t, err, "535")
}

func TestSMTPTransport_SendHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	sender := &mockSender{
		DialAndSendFunc: func(...*gomail.Message) error {
			<-release
			return nil
		},
	}
	transport := newTestTransport(sender)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := transport.Send(ctx, "u1", "title", "body", map[string]string{
		notification.MetaUserEmail: "dana@example.com",
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSMTPTransport_ImageOnly(t *testing.T) {
	sender := &mockSender{}
	transport := newTestTransport(sender)

	err := transport.Send(context.Background(), "u1", "New reply", "Sent an image", map[string]string{
		notification.MetaUserEmail: "dana@example.com",
		notification.MetaImageURL:  "https://cdn.example.com/a.png",
	})
	require.NoError(t, err)

	raw := render(t, sender.sent[0])
	assert.Contains(t, raw, "https://cdn.example.com/a.png")
}
