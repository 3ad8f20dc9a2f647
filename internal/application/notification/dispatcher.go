// Package notification delivers best-effort notifications about new agent replies to the
// ticket's owner. Delivery is fire-and-forget: failures are logged and never returned.
package notification

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/goroutine"
	"supportdesk/internal/shared/logger"
)

const (
	DefaultTimeout = 10 * time.Second

	maxBodyRunes = 200
)

// Metadata keys sent alongside every notification.
const (
	MetaTicketID   = "ticketId"
	MetaSenderType = "senderType"
	MetaSenderName = "senderName"
	MetaMessageID  = "messageId"
	MetaImageURL   = "imageUrl"
	MetaUserEmail  = "userEmail"
	// MetaText carries the full message text; the body may be truncated.
	MetaText = "text"
)

// Transport performs the single outbound delivery call.
type Transport interface {
	Send(ctx context.Context, userID, title, body string, metadata map[string]string) error
}

// Notification describes one new message to tell the user about.
type Notification struct {
	TicketID   string
	UserID     string
	UserEmail  string
	SenderType string
	SenderName string
	MessageID  string
	Text       string
	ImageURL   string
}

type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    logger.Interface

	wg sync.WaitGroup
}

func NewDispatcher(transport Transport, timeout time.Duration, log logger.Interface) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		transport: transport,
		timeout:   timeout,
		logger:    log,
	}
}

// Notify schedules delivery and returns immediately.
func (d *Dispatcher) Notify(n Notification) {
	d.wg.Add(1)
	goroutine.SafeGo(d.logger, "notification-dispatch", func() {
		defer d.wg.Done()
		d.deliver(n)
	})
}

// Wait blocks until every scheduled delivery has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(n Notification) {
	// Not tied to the request that triggered it; the request is usually gone by now.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	title, body := compose(n)
	start := time.Now()

	err := goroutine.Run(d.logger, "notification-transport", func() error {
		return d.transport.Send(ctx, n.UserID, title, body, metadata(n))
	})
	if err != nil {
		d.logger.Warnw("notification delivery failed",
			"ticket_id", n.TicketID,
			"user_id", n.UserID,
			"duration", time.Since(start),
			"error", errors.NewNotificationDeliveryError("failed to deliver notification", err),
		)
		return
	}

	d.logger.Debugw("notification delivered",
		"ticket_id", n.TicketID,
		"user_id", n.UserID,
		"duration", time.Since(start),
	)
}

func compose(n Notification) (title, body string) {
	title = "New reply to your support ticket"
	if n.SenderName != "" {
		title = "New reply from " + n.SenderName
	}

	switch {
	case n.Text != "":
		body = truncate(n.Text, maxBodyRunes)
	case n.ImageURL != "":
		body = "Sent an image"
	}
	return title, body
}

func metadata(n Notification) map[string]string {
	meta := map[string]string{
		MetaTicketID:   n.TicketID,
		MetaSenderType: n.SenderType,
	}
	optional := map[string]string{
		MetaSenderName: n.SenderName,
		MetaMessageID:  n.MessageID,
		MetaImageURL:   n.ImageURL,
		MetaUserEmail:  n.UserEmail,
		MetaText:       n.Text,
	}
	for k, v := range optional {
		if v != "" {
			meta[k] = v
		}
	}
	return meta
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
