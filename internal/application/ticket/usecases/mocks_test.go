package usecases

import (
	"context"
	"sync"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/domain/ticket"
)

type mockTicketRepository struct {
	CreateFunc            func(ctx context.Context, t *ticket.Ticket) error
	GetByIDFunc           func(ctx context.Context, ticketID string) (*ticket.Ticket, error)
	ListFunc              func(ctx context.Context, filter ticket.TicketFilter) ([]*ticket.Ticket, error)
	ApplyStatusChangeFunc func(ctx context.Context, ticketID string, change ticket.StatusChange) error
	ApplyUnreadChangeFunc func(ctx context.Context, ticketID string, change ticket.UnreadChange) error
	WatchFunc             func(ctx context.Context, fn func([]*ticket.Ticket)) (func(), error)
}

func (m *mockTicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil
}

func (m *mockTicketRepository) GetByID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *mockTicketRepository) List(ctx context.Context, filter ticket.TicketFilter) ([]*ticket.Ticket, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockTicketRepository) ApplyStatusChange(ctx context.Context, ticketID string, change ticket.StatusChange) error {
	if m.ApplyStatusChangeFunc != nil {
		return m.ApplyStatusChangeFunc(ctx, ticketID, change)
	}
	return nil
}

func (m *mockTicketRepository) ApplyUnreadChange(ctx context.Context, ticketID string, change ticket.UnreadChange) error {
	if m.ApplyUnreadChangeFunc != nil {
		return m.ApplyUnreadChangeFunc(ctx, ticketID, change)
	}
	return nil
}

func (m *mockTicketRepository) Watch(ctx context.Context, fn func([]*ticket.Ticket)) (func(), error) {
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx, fn)
	}
	return func() {}, nil
}

type mockMessageRepository struct {
	AppendFunc       func(ctx context.Context, m *ticket.Message) (string, error)
	ListByTicketFunc func(ctx context.Context, ticketID string) ([]*ticket.Message, error)
}

func (m *mockMessageRepository) Append(ctx context.Context, msg *ticket.Message) (string, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, msg)
	}
	return "", nil
}

func (m *mockMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]*ticket.Message, error) {
	if m.ListByTicketFunc != nil {
		return m.ListByTicketFunc(ctx, ticketID)
	}
	return nil, nil
}

type mockMarkUnread struct {
	ExecuteFunc func(ctx context.Context, cmd MarkUnreadCommand) error
}

func (m *mockMarkUnread) Execute(ctx context.Context, cmd MarkUnreadCommand) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, cmd)
	}
	return nil
}

type mockNotifier struct {
	mu         sync.Mutex
	sent       []notification.Notification
	NotifyFunc func(n notification.Notification)
}

func (m *mockNotifier) Notify(n notification.Notification) {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		m.NotifyFunc(n)
	}
}

func (m *mockNotifier) notifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Notification(nil), m.sent...)
}
