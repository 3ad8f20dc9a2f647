package usecases

import (
	"context"
	"time"

	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

type MarkUnreadCommand struct {
	TicketID string
	// At is the timestamp of the user message that made the ticket unread.
	At time.Time
}

type MarkUnreadUseCase struct {
	ticketRepo ticket.TicketRepository
	logger     logger.Interface
}

func NewMarkUnreadUseCase(
	ticketRepo ticket.TicketRepository,
	logger logger.Interface,
) *MarkUnreadUseCase {
	return &MarkUnreadUseCase{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

// Execute always writes; the latest call wins on lastUserMessageAt.
func (uc *MarkUnreadUseCase) Execute(ctx context.Context, cmd MarkUnreadCommand) error {
	if err := utils.ValidateID("ticket ID", cmd.TicketID); err != nil {
		return err
	}

	t, err := uc.ticketRepo.GetByID(ctx, cmd.TicketID)
	if err != nil {
		return err
	}

	if err := uc.ticketRepo.ApplyUnreadChange(ctx, cmd.TicketID, t.MarkUnread(cmd.At)); err != nil {
		uc.logger.Errorw("failed to mark ticket unread", "ticket_id", cmd.TicketID, "error", err)
		return err
	}
	return nil
}
