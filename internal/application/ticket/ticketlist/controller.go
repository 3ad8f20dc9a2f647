// Package ticketlist maintains the agent-facing ticket list and its aggregate counts.
package ticketlist

import (
	"context"
	"fmt"
	"sync"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/goroutine"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

// ListView is one rendering of the ticket list: every ticket newest first, plus counts.
type ListView struct {
	Tickets []*dto.TicketDTO `json:"tickets"`
	Stats   dto.StatsDTO     `json:"stats"`
}

// BuildView sorts tickets newest first and computes the counts. The whole list is
// rebuilt on every change.
func BuildView(tickets []*ticket.Ticket) ListView {
	sorted := append([]*ticket.Ticket(nil), tickets...)
	ticket.SortNewestFirst(sorted)

	items := dto.ToTicketDTOList(sorted)
	if items == nil {
		items = []*dto.TicketDTO{}
	}
	return ListView{
		Tickets: items,
		Stats:   dto.NewStats(sorted),
	}
}

// Controller keeps one subscription to the ticket collection and fans every change out
// to its listeners.
type Controller struct {
	tickets ticket.TicketRepository
	logger  logger.Interface

	mu          sync.RWMutex
	current     *ListView
	listeners   map[uint64]func(ListView)
	nextID      uint64
	unsubscribe func()
}

func NewController(tickets ticket.TicketRepository, log logger.Interface) *Controller {
	return &Controller{
		tickets:   tickets,
		logger:    log,
		listeners: make(map[uint64]func(ListView)),
	}
}

// Start subscribes to the ticket collection. It must be called before Subscribe
// delivers anything.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	unsubscribe, err := c.tickets.Watch(ctx, c.onTicketsChanged)
	if err != nil {
		return fmt.Errorf("failed to watch tickets: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.logger.Infow("ticket list controller started")
	return nil
}

// Stop ends the subscription. Listeners stay registered but receive nothing further.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Subscribe registers fn for every list change. If a view has already been computed, fn
// receives it right away.
func (c *Controller) Subscribe(fn func(ListView)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.current
	c.mu.Unlock()

	if current != nil {
		c.deliver(fn, *current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Current returns the last computed view. ok is false until the first change arrives.
func (c *Controller) Current() (view ListView, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ListView{}, false
	}
	return *c.current, true
}

// ResolveDeepLink finds the ticket a link points at: by id when given, otherwise the
// user's most recently created ticket. An id that does not resolve falls back to the
// user when one is given.
func (c *Controller) ResolveDeepLink(ctx context.Context, ticketID, userID string) (*dto.TicketDTO, error) {
	if ticketID == "" && userID == "" {
		return nil, errors.NewValidationError("ticket ID or user ID is required")
	}

	if ticketID != "" {
		if err := utils.ValidateID("ticket ID", ticketID); err != nil {
			return nil, err
		}
		t, err := c.tickets.GetByID(ctx, ticketID)
		if err == nil {
			return dto.ToTicketDTO(t), nil
		}
		if !errors.IsNotFoundError(err) || userID == "" {
			return nil, err
		}
		c.logger.Debugw("deep link ticket not found, falling back to user", "ticket_id", ticketID, "user_id", userID)
	}

	tickets, err := c.tickets.List(ctx, ticket.TicketFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, errors.NewNotFoundError("no ticket found for deep link", fmt.Sprintf("ticket_id=%s user_id=%s", ticketID, userID))
	}

	// List is newest first.
	return dto.ToTicketDTO(tickets[0]), nil
}

func (c *Controller) onTicketsChanged(tickets []*ticket.Ticket) {
	view := BuildView(tickets)

	c.mu.Lock()
	c.current = &view
	listeners := make([]func(ListView), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	c.logger.Debugw("ticket list changed", "total", view.Stats.Total, "unread", view.Stats.Unread)

	for _, fn := range listeners {
		c.deliver(fn, view)
	}
}

func (c *Controller) deliver(fn func(ListView), view ListView) {
	_ = goroutine.Run(c.logger, "ticket-list-listener", func() error {
		fn(view)
		return nil
	})
}
