package usecases

import (
	"context"

	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/biztime"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

type ClearUnreadCommand struct {
	TicketID string
}

// ClearUnreadUseCase runs when an agent opens a ticket's conversation.
type ClearUnreadUseCase struct {
	ticketRepo ticket.TicketRepository
	logger     logger.Interface
}

func NewClearUnreadUseCase(
	ticketRepo ticket.TicketRepository,
	logger logger.Interface,
) *ClearUnreadUseCase {
	return &ClearUnreadUseCase{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

// Execute stamps lastReadAt on every open. On an already clear ticket nothing else is
// written, so repeated opens leave the unread flag and lastUserMessageAt as they were.
func (uc *ClearUnreadUseCase) Execute(ctx context.Context, cmd ClearUnreadCommand) error {
	if err := utils.ValidateID("ticket ID", cmd.TicketID); err != nil {
		return err
	}

	t, err := uc.ticketRepo.GetByID(ctx, cmd.TicketID)
	if err != nil {
		return err
	}

	change, cleared := t.ClearUnread(biztime.NowUTC())
	if err := uc.ticketRepo.ApplyUnreadChange(ctx, cmd.TicketID, change); err != nil {
		uc.logger.Errorw("failed to clear unread flag", "ticket_id", cmd.TicketID, "error", err)
		return err
	}

	uc.logger.Debugw("ticket opened by agent", "ticket_id", cmd.TicketID, "cleared", cleared)
	return nil
}
