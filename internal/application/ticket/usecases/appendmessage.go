package usecases

import (
	"context"
	"time"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/domain/ticket"
	vo "supportdesk/internal/domain/ticket/valueobjects"
	"supportdesk/internal/shared/biztime"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/goroutine"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

// followUpTimeout bounds the ticket writes that follow a persisted message. They run
// detached from the caller's context, which may end as soon as Execute returns.
const followUpTimeout = 10 * time.Second

type AppendMessageCommand struct {
	TicketID   string
	SenderID   string
	SenderName string
	SenderType string
	Text       string
	ImageURL   string
}

type AppendMessageResult struct {
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendMessageUseCase writes a message and then runs its follow-ups: a user message
// marks the ticket unread; an agent message moves a pending ticket to in_progress and
// notifies the ticket owner. Follow-ups are best-effort and never fail the append.
type AppendMessageUseCase struct {
	ticketRepo  ticket.TicketRepository
	messageRepo ticket.MessageRepository
	markUnread  MarkUnreadExecutor
	notifier    Notifier
	logger      logger.Interface
}

func NewAppendMessageUseCase(
	ticketRepo ticket.TicketRepository,
	messageRepo ticket.MessageRepository,
	markUnread MarkUnreadExecutor,
	notifier Notifier,
	logger logger.Interface,
) *AppendMessageUseCase {
	return &AppendMessageUseCase{
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		markUnread:  markUnread,
		notifier:    notifier,
		logger:      logger,
	}
}

func (uc *AppendMessageUseCase) Execute(ctx context.Context, cmd AppendMessageCommand) (*AppendMessageResult, error) {
	uc.logger.Infow("executing append message use case",
		"ticket_id", cmd.TicketID,
		"sender_id", cmd.SenderID,
		"sender_type", cmd.SenderType,
	)

	if err := utils.ValidateID("ticket ID", cmd.TicketID); err != nil {
		return nil, err
	}
	if cmd.SenderType == "" {
		return nil, errors.NewValidationError("sender type is required")
	}
	senderType, err := vo.NewSenderType(cmd.SenderType)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	msg, err := ticket.NewMessage(
		cmd.TicketID,
		cmd.SenderID,
		cmd.SenderName,
		senderType,
		cmd.Text,
		cmd.ImageURL,
		biztime.NowUTC(),
	)
	if err != nil {
		uc.logger.Warnw("invalid append message command", "ticket_id", cmd.TicketID, "error", err)
		return nil, errors.NewValidationError(err.Error())
	}

	t, err := uc.ticketRepo.GetByID(ctx, cmd.TicketID)
	if err != nil {
		uc.logger.Errorw("failed to get ticket", "ticket_id", cmd.TicketID, "error", err)
		return nil, err
	}

	messageID, err := uc.messageRepo.Append(ctx, msg)
	if err != nil {
		uc.logger.Errorw("failed to append message", "ticket_id", cmd.TicketID, "error", err)
		return nil, err
	}

	uc.logger.Infow("message appended successfully", "ticket_id", cmd.TicketID, "message_id", messageID)

	uc.runFollowUps(ctx, t, msg)

	return &AppendMessageResult{
		MessageID: messageID,
		Timestamp: msg.Timestamp(),
	}, nil
}

// runFollowUps runs each follow-up in isolation so a failure or panic in one does not
// stop the others.
func (uc *AppendMessageUseCase) runFollowUps(ctx context.Context, t *ticket.Ticket, msg *ticket.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()

	if msg.SenderType().IsUser() {
		uc.followUp("mark-unread", msg, func() error {
			return uc.markUnread.Execute(ctx, MarkUnreadCommand{
				TicketID: msg.TicketID(),
				At:       msg.Timestamp(),
			})
		})
		return
	}

	uc.followUp("auto-start-progress", msg, func() error {
		// Re-read so a concurrent reply that already started progress keeps its adminID.
		// The read and the write are not atomic; two replies landing in that gap both write.
		current, err := uc.ticketRepo.GetByID(ctx, msg.TicketID())
		if err != nil {
			return err
		}
		change, ok := current.AutoStartProgress(msg.SenderID())
		if !ok {
			return nil
		}
		if err := uc.ticketRepo.ApplyStatusChange(ctx, msg.TicketID(), change); err != nil {
			return err
		}
		uc.logger.Infow("ticket moved to in_progress by first agent reply",
			"ticket_id", msg.TicketID(),
			"admin_id", change.AdminID,
		)
		return nil
	})

	uc.followUp("notify", msg, func() error {
		uc.notifier.Notify(notification.Notification{
			TicketID:   msg.TicketID(),
			UserID:     t.UserID(),
			UserEmail:  t.UserEmail(),
			SenderType: msg.SenderType().String(),
			SenderName: msg.SenderName(),
			MessageID:  msg.ID(),
			Text:       msg.Text(),
			ImageURL:   msg.ImageURL(),
		})
		return nil
	})
}

func (uc *AppendMessageUseCase) followUp(name string, msg *ticket.Message, fn func() error) {
	if err := goroutine.Run(uc.logger, name, fn); err != nil {
		uc.logger.Warnw("message follow-up failed",
			"follow_up", name,
			"ticket_id", msg.TicketID(),
			"message_id", msg.ID(),
			"error", err,
		)
	}
}
