package usecases

import (
	"context"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

type RecomputeUnreadCommand struct {
	TicketID string
}

// RecomputeUnreadUseCase rebuilds the unread flag from the message log, which is the
// authoritative source when the denormalized flag has drifted.
type RecomputeUnreadUseCase struct {
	ticketRepo  ticket.TicketRepository
	messageRepo ticket.MessageRepository
	logger      logger.Interface
}

func NewRecomputeUnreadUseCase(
	ticketRepo ticket.TicketRepository,
	messageRepo ticket.MessageRepository,
	logger logger.Interface,
) *RecomputeUnreadUseCase {
	return &RecomputeUnreadUseCase{
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		logger:      logger,
	}
}

func (uc *RecomputeUnreadUseCase) Execute(ctx context.Context, cmd RecomputeUnreadCommand) (*dto.TicketDTO, error) {
	if err := utils.ValidateID("ticket ID", cmd.TicketID); err != nil {
		return nil, err
	}

	t, err := uc.ticketRepo.GetByID(ctx, cmd.TicketID)
	if err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListByTicket(ctx, cmd.TicketID)
	if err != nil {
		uc.logger.Errorw("failed to list messages", "ticket_id", cmd.TicketID, "error", err)
		return nil, err
	}

	before := t.HasUnreadUserMessage()
	change := t.RecomputeUnread(messages)
	if err := uc.ticketRepo.ApplyUnreadChange(ctx, cmd.TicketID, change); err != nil {
		uc.logger.Errorw("failed to write recomputed unread flag", "ticket_id", cmd.TicketID, "error", err)
		return nil, err
	}

	if before != change.HasUnread {
		uc.logger.Infow("unread flag corrected from message log",
			"ticket_id", cmd.TicketID,
			"was", before,
			"now", change.HasUnread,
		)
	}

	return dto.ToTicketDTO(t), nil
}
