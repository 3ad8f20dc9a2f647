package usecases

import (
	"context"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/domain/ticket"
	vo "supportdesk/internal/domain/ticket/valueobjects"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
)

type ListTicketsQuery struct {
	Status     string
	UserID     string
	UnreadOnly bool
}

type ListTicketsResult struct {
	Tickets []*dto.TicketDTO `json:"tickets"`
	Stats   dto.StatsDTO     `json:"stats"`
}

type ListTicketsUseCase struct {
	ticketRepo ticket.TicketRepository
	logger     logger.Interface
}

func NewListTicketsUseCase(
	ticketRepo ticket.TicketRepository,
	logger logger.Interface,
) *ListTicketsUseCase {
	return &ListTicketsUseCase{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

// Execute returns the matching tickets, newest first, with counts over the returned set.
func (uc *ListTicketsUseCase) Execute(ctx context.Context, query ListTicketsQuery) (*ListTicketsResult, error) {
	filter := ticket.TicketFilter{
		UserID:     query.UserID,
		UnreadOnly: query.UnreadOnly,
	}
	if query.Status != "" {
		status, err := vo.NewTicketStatus(query.Status)
		if err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
		filter.Status = &status
	}

	tickets, err := uc.ticketRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list tickets", "error", err)
		return nil, err
	}

	return &ListTicketsResult{
		Tickets: dto.ToTicketDTOList(tickets),
		Stats:   dto.NewStats(tickets),
	}, nil
}
