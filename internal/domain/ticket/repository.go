package ticket

import (
	"context"
	"sort"

	vo "supportdesk/internal/domain/ticket/valueobjects"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *Ticket) error
	GetByID(ctx context.Context, ticketID string) (*Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]*Ticket, error)
	// ApplyStatusChange and ApplyUnreadChange write only the fields the change names.
	ApplyStatusChange(ctx context.Context, ticketID string, change StatusChange) error
	ApplyUnreadChange(ctx context.Context, ticketID string, change UnreadChange) error
	// Watch calls fn with every ticket whenever the collection changes, until the
	// returned function is called or ctx is done.
	Watch(ctx context.Context, fn func([]*Ticket)) (func(), error)
}

type MessageRepository interface {
	// Append stores the message and returns its insertion-ordered id.
	Append(ctx context.Context, message *Message) (string, error)
	ListByTicket(ctx context.Context, ticketID string) ([]*Message, error)
}

type TicketFilter struct {
	Status     *vo.TicketStatus
	UserID     string
	UnreadOnly bool
}

func (f TicketFilter) Matches(t *Ticket) bool {
	if f.Status != nil && t.status != *f.Status {
		return false
	}
	if f.UserID != "" && t.userID != f.UserID {
		return false
	}
	if f.UnreadOnly && !t.hasUnreadUserMessage {
		return false
	}
	return true
}

// SortNewestFirst orders tickets by creation timestamp, newest first, then by id.
func SortNewestFirst(tickets []*Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if !a.timestamp.Equal(b.timestamp) {
			return a.timestamp.After(b.timestamp)
		}
		return a.id > b.id
	})
}
