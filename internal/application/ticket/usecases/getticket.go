package usecases

import (
	"context"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

type GetTicketQuery struct {
	TicketID string
}

type GetTicketUseCase struct {
	ticketRepo ticket.TicketRepository
	logger     logger.Interface
}

func NewGetTicketUseCase(
	ticketRepo ticket.TicketRepository,
	logger logger.Interface,
) *GetTicketUseCase {
	return &GetTicketUseCase{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

func (uc *GetTicketUseCase) Execute(ctx context.Context, query GetTicketQuery) (*dto.TicketDTO, error) {
	if err := utils.ValidateID("ticket ID", query.TicketID); err != nil {
		return nil, err
	}

	t, err := uc.ticketRepo.GetByID(ctx, query.TicketID)
	if err != nil {
		uc.logger.Debugw("failed to get ticket", "ticket_id", query.TicketID, "error", err)
		return nil, err
	}

	return dto.ToTicketDTO(t), nil
}
