package usecases

import (
	"context"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/application/ticket/dto"
)

type CreateTicketExecutor interface {
	Execute(ctx context.Context, cmd CreateTicketCommand) (*dto.TicketDTO, error)
}

type GetTicketExecutor interface {
	Execute(ctx context.Context, query GetTicketQuery) (*dto.TicketDTO, error)
}

type ListTicketsExecutor interface {
	Execute(ctx context.Context, query ListTicketsQuery) (*ListTicketsResult, error)
}

type SetStatusExecutor interface {
	Execute(ctx context.Context, cmd SetStatusCommand) (*dto.TicketDTO, error)
}

type ClearUnreadExecutor interface {
	Execute(ctx context.Context, cmd ClearUnreadCommand) error
}

type MarkUnreadExecutor interface {
	Execute(ctx context.Context, cmd MarkUnreadCommand) error
}

type RecomputeUnreadExecutor interface {
	Execute(ctx context.Context, cmd RecomputeUnreadCommand) (*dto.TicketDTO, error)
}

type AppendMessageExecutor interface {
	Execute(ctx context.Context, cmd AppendMessageCommand) (*AppendMessageResult, error)
}

type ListMessagesExecutor interface {
	Execute(ctx context.Context, query ListMessagesQuery) ([]*dto.MessageDTO, error)
}

// Notifier schedules a reply notification without waiting for delivery.
type Notifier interface {
	Notify(n notification.Notification)
}
