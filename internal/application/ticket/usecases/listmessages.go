package usecases

import (
	"context"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

type ListMessagesQuery struct {
	TicketID string
}

type ListMessagesUseCase struct {
	messageRepo ticket.MessageRepository
	logger      logger.Interface
}

func NewListMessagesUseCase(
	messageRepo ticket.MessageRepository,
	logger logger.Interface,
) *ListMessagesUseCase {
	return &ListMessagesUseCase{
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// Execute returns the full conversation in (timestamp, id) order. It can be called
// repeatedly and always reflects the current state.
func (uc *ListMessagesUseCase) Execute(ctx context.Context, query ListMessagesQuery) ([]*dto.MessageDTO, error) {
	if err := utils.ValidateID("ticket ID", query.TicketID); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListByTicket(ctx, query.TicketID)
	if err != nil {
		uc.logger.Errorw("failed to list messages", "ticket_id", query.TicketID, "error", err)
		return nil, err
	}

	return dto.ToMessageDTOList(messages), nil
}
