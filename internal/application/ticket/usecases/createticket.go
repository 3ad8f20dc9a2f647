package usecases

import (
	"context"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/biztime"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
)

type CreateTicketCommand struct {
	UserID      string
	UserEmail   string
	UserName    string
	Subject     string
	Description string
	IssueType   string
	ImageURL    string
}

type CreateTicketUseCase struct {
	ticketRepo ticket.TicketRepository
	logger     logger.Interface
}

func NewCreateTicketUseCase(
	ticketRepo ticket.TicketRepository,
	logger logger.Interface,
) *CreateTicketUseCase {
	return &CreateTicketUseCase{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

func (uc *CreateTicketUseCase) Execute(ctx context.Context, cmd CreateTicketCommand) (*dto.TicketDTO, error) {
	uc.logger.Infow("executing create ticket use case", "user_id", cmd.UserID, "issue_type", cmd.IssueType)

	t, err := ticket.NewTicket(
		cmd.UserID,
		cmd.UserEmail,
		cmd.UserName,
		cmd.Subject,
		cmd.Description,
		cmd.IssueType,
		cmd.ImageURL,
		biztime.NowUTC(),
	)
	if err != nil {
		uc.logger.Warnw("invalid create ticket command", "user_id", cmd.UserID, "error", err)
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.ticketRepo.Create(ctx, t); err != nil {
		uc.logger.Errorw("failed to create ticket", "user_id", cmd.UserID, "error", err)
		return nil, err
	}

	uc.logger.Infow("ticket created successfully", "ticket_id", t.ID(), "user_id", cmd.UserID)

	return dto.ToTicketDTO(t), nil
}
