package repository

import (
	"context"
	"fmt"

	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/infrastructure/persistence/mappers"
	"supportdesk/internal/infrastructure/persistence/models"
	"supportdesk/internal/infrastructure/store"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
)

// MessageRepository persists messages at messages/{ticketId}/{messageId}. Message ids are
// store push keys.
type MessageRepository struct {
	store  store.Store
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewMessageRepository(s store.Store, log logger.Interface) *MessageRepository {
	return &MessageRepository{
		store:  s,
		mapper: mappers.NewTicketMapper(),
		logger: log,
	}
}

func (r *MessageRepository) Append(ctx context.Context, m *ticket.Message) (string, error) {
	fields := r.mapper.MessageToFields(r.mapper.MessageToModel(m))
	key, err := r.store.Push(ctx, store.Join(models.MessagesPath, m.TicketID()), fields)
	if err != nil {
		return "", errors.NewStoreUnavailableError("failed to write message", err)
	}
	if err := m.SetID(key); err != nil {
		return "", err
	}
	return key, nil
}

// ListByTicket returns the ticket's messages ordered by timestamp, then id.
func (r *MessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]*ticket.Message, error) {
	snap, err := r.store.Get(ctx, store.Join(models.MessagesPath, ticketID))
	if err != nil {
		return nil, errors.NewStoreUnavailableError("failed to list messages", err)
	}

	messages := make([]*ticket.Message, 0, len(snap.Children))
	for _, child := range snap.Children {
		var model models.MessageModel
		if err := child.Record.Decode(&model); err != nil {
			r.logger.Warnw("skipping malformed message record",
				"ticket_id", ticketID,
				"message_id", child.Key,
				"error", err,
			)
			continue
		}
		model.ID = child.Key
		if model.TicketID == "" {
			model.TicketID = ticketID
		}

		m, err := r.mapper.MessageToDomain(&model)
		if err != nil {
			r.logger.Warnw("skipping malformed message record",
				"ticket_id", ticketID,
				"message_id", child.Key,
				"error", fmt.Errorf("decode: %w", err),
			)
			continue
		}
		messages = append(messages, m)
	}

	ticket.SortMessages(messages)
	return messages, nil
}
