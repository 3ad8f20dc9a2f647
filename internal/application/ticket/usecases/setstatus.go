package usecases

import (
	"context"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	vo "supportdesk/internal/domain/ticket/valueobjects"
	"supportdesk/internal/shared/biztime"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

type SetStatusCommand struct {
	TicketID string
	Status   string
	// AgentID is optional; when set it is recorded as the ticket's admin.
	AgentID string
}

type SetStatusUseCase struct {
	ticketRepo ticket.TicketRepository
	logger     logger.Interface
}

func NewSetStatusUseCase(
	ticketRepo ticket.TicketRepository,
	logger logger.Interface,
) *SetStatusUseCase {
	return &SetStatusUseCase{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

// Execute applies an explicit status transition. Only the changed fields are written.
func (uc *SetStatusUseCase) Execute(ctx context.Context, cmd SetStatusCommand) (*dto.TicketDTO, error) {
	uc.logger.Infow("executing set status use case", "ticket_id", cmd.TicketID, "status", cmd.Status, "agent_id", cmd.AgentID)

	if err := utils.ValidateID("ticket ID", cmd.TicketID); err != nil {
		return nil, err
	}
	status, err := vo.NewTicketStatus(cmd.Status)
	if err != nil {
		uc.logger.Warnw("invalid set status command", "ticket_id", cmd.TicketID, "error", err)
		return nil, errors.NewValidationError(err.Error())
	}

	t, err := uc.ticketRepo.GetByID(ctx, cmd.TicketID)
	if err != nil {
		uc.logger.Errorw("failed to get ticket", "ticket_id", cmd.TicketID, "error", err)
		return nil, err
	}

	change, err := t.ChangeStatus(status, cmd.AgentID, biztime.NowUTC())
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.ticketRepo.ApplyStatusChange(ctx, cmd.TicketID, change); err != nil {
		uc.logger.Errorw("failed to update ticket status", "ticket_id", cmd.TicketID, "error", err)
		return nil, err
	}

	uc.logger.Infow("ticket status changed successfully",
		"ticket_id", cmd.TicketID,
		"old_status", change.Previous,
		"new_status", change.Status,
	)

	return dto.ToTicketDTO(t), nil
}
