package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/infrastructure/persistence/mappers"
	"supportdesk/internal/infrastructure/persistence/models"
	"supportdesk/internal/infrastructure/store"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
)

// TicketRepository persists tickets at tickets/{id}.
type TicketRepository struct {
	store  store.Store
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewTicketRepository(s store.Store, log logger.Interface) *TicketRepository {
	return &TicketRepository{
		store:  s,
		mapper: mappers.NewTicketMapper(),
		logger: log,
	}
}

func ticketPath(ticketID string) string {
	return store.Join(models.TicketsPath, ticketID)
}

// Create assigns a uuid when the ticket has no id yet and writes the full record.
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	if t.ID() == "" {
		if err := t.SetID(uuid.NewString()); err != nil {
			return err
		}
	}

	fields := r.mapper.ToFields(r.mapper.ToModel(t))
	if err := r.store.Set(ctx, ticketPath(t.ID()), fields); err != nil {
		return errors.NewStoreUnavailableError("failed to create ticket", err)
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	snap, err := r.store.Get(ctx, ticketPath(ticketID))
	if err != nil {
		return nil, errors.NewStoreUnavailableError("failed to get ticket", err)
	}
	if len(snap.Record) == 0 {
		return nil, errors.NewNotFoundError("ticket not found", ticketID)
	}
	return r.decode(ticketID, snap.Record)
}

func (r *TicketRepository) List(ctx context.Context, filter ticket.TicketFilter) ([]*ticket.Ticket, error) {
	snap, err := r.store.Get(ctx, models.TicketsPath)
	if err != nil {
		return nil, errors.NewStoreUnavailableError("failed to list tickets", err)
	}

	tickets := r.decodeChildren(snap.Children)
	filtered := tickets[:0]
	for _, t := range tickets {
		if filter.Matches(t) {
			filtered = append(filtered, t)
		}
	}
	ticket.SortNewestFirst(filtered)
	return filtered, nil
}

func (r *TicketRepository) ApplyStatusChange(ctx context.Context, ticketID string, change ticket.StatusChange) error {
	if err := r.store.Update(ctx, ticketPath(ticketID), r.mapper.StatusChangeFields(change)); err != nil {
		return errors.NewStoreUnavailableError("failed to update ticket status", err)
	}
	return nil
}

func (r *TicketRepository) ApplyUnreadChange(ctx context.Context, ticketID string, change ticket.UnreadChange) error {
	if err := r.store.Update(ctx, ticketPath(ticketID), r.mapper.UnreadChangeFields(change)); err != nil {
		return errors.NewStoreUnavailableError("failed to update unread state", err)
	}
	return nil
}

// Watch subscribes to the tickets collection. fn receives every ticket, newest first.
func (r *TicketRepository) Watch(ctx context.Context, fn func([]*ticket.Ticket)) (func(), error) {
	unsubscribe, err := r.store.Subscribe(ctx, models.TicketsPath, func(snap store.Snapshot) {
		tickets := r.decodeChildren(snap.Children)
		ticket.SortNewestFirst(tickets)
		fn(tickets)
	})
	if err != nil {
		return nil, errors.NewStoreUnavailableError("failed to subscribe to tickets", err)
	}
	return unsubscribe, nil
}

func (r *TicketRepository) decode(ticketID string, record store.Record) (*ticket.Ticket, error) {
	var model models.TicketModel
	if err := record.Decode(&model); err != nil {
		return nil, errors.NewInternalError("failed to decode ticket", fmt.Sprintf("%s: %v", ticketID, err))
	}
	model.ID = ticketID

	t, err := r.mapper.ToDomain(&model)
	if err != nil {
		return nil, errors.NewInternalError("failed to decode ticket", err.Error())
	}
	return t, nil
}

// decodeChildren skips records that cannot be decoded so one bad record does not hide the rest.
func (r *TicketRepository) decodeChildren(children []store.Child) []*ticket.Ticket {
	tickets := make([]*ticket.Ticket, 0, len(children))
	for _, child := range children {
		if len(child.Record) == 0 {
			continue
		}
		t, err := r.decode(child.Key, child.Record)
		if err != nil {
			r.logger.Warnw("skipping malformed ticket record",
				"ticket_id", child.Key,
				"error", err,
			)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets
}
