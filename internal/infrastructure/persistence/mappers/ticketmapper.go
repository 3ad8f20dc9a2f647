package mappers

import (
	"fmt"

	"supportdesk/internal/domain/ticket"
	vo "supportdesk/internal/domain/ticket/valueobjects"
	"supportdesk/internal/infrastructure/persistence/models"
	"supportdesk/internal/infrastructure/store"
	"supportdesk/internal/shared/biztime"
)

// TicketMapper converts between domain entities and store records.
type TicketMapper interface {
	ToModel(t *ticket.Ticket) *models.TicketModel
	ToDomain(model *models.TicketModel) (*ticket.Ticket, error)
	// ToFields flattens a model into store fields, omitting unset optional fields.
	ToFields(model *models.TicketModel) store.Fields
	StatusChangeFields(change ticket.StatusChange) store.Fields
	UnreadChangeFields(change ticket.UnreadChange) store.Fields

	MessageToModel(m *ticket.Message) *models.MessageModel
	MessageToDomain(model *models.MessageModel) (*ticket.Message, error)
	MessageToFields(model *models.MessageModel) store.Fields
}

type TicketMapperImpl struct{}

func NewTicketMapper() TicketMapper {
	return &TicketMapperImpl{}
}

func (m *TicketMapperImpl) ToModel(t *ticket.Ticket) *models.TicketModel {
	return &models.TicketModel{
		ID:                   t.ID(),
		UserID:               t.UserID(),
		UserEmail:            t.UserEmail(),
		UserName:             t.UserName(),
		Subject:              t.Subject(),
		Description:          t.Description(),
		IssueType:            t.IssueType(),
		ImageURL:             t.ImageURL(),
		Status:               t.Status().String(),
		AdminID:              t.AdminID(),
		Timestamp:            t.Timestamp().UnixMilli(),
		RespondedAt:          biztime.ToUnixMilliPtr(t.RespondedAt()),
		HasUnreadUserMessage: t.HasUnreadUserMessage(),
		LastUserMessageAt:    biztime.ToUnixMilliPtr(t.LastUserMessageAt()),
		LastReadAt:           biztime.ToUnixMilliPtr(t.LastReadAt()),
	}
}

func (m *TicketMapperImpl) ToDomain(model *models.TicketModel) (*ticket.Ticket, error) {
	if model == nil {
		return nil, fmt.Errorf("ticket model is nil")
	}

	status := vo.TicketStatus(model.Status)
	if model.Status == "" {
		status = vo.StatusPending
	}

	t, err := ticket.ReconstructTicket(
		model.ID,
		model.UserID,
		model.UserEmail,
		model.UserName,
		model.Subject,
		model.Description,
		model.IssueType,
		model.ImageURL,
		status,
		model.AdminID,
		biztime.FromUnixMilli(model.Timestamp),
		biztime.FromUnixMilliPtr(model.RespondedAt),
		model.HasUnreadUserMessage,
		biztime.FromUnixMilliPtr(model.LastUserMessageAt),
		biztime.FromUnixMilliPtr(model.LastReadAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct ticket %s: %w", model.ID, err)
	}
	return t, nil
}

func (m *TicketMapperImpl) ToFields(model *models.TicketModel) store.Fields {
	fields := store.Fields{
		"userId":                         model.UserID,
		"userEmail":                      model.UserEmail,
		"userName":                       model.UserName,
		"subject":                        model.Subject,
		"description":                    model.Description,
		"issueType":                      model.IssueType,
		models.FieldStatus:               model.Status,
		"timestamp":                      model.Timestamp,
		models.FieldHasUnreadUserMessage: model.HasUnreadUserMessage,
	}
	if model.ImageURL != "" {
		fields["imageUrl"] = model.ImageURL
	}
	if model.AdminID != "" {
		fields[models.FieldAdminID] = model.AdminID
	}
	if model.RespondedAt != nil {
		fields[models.FieldRespondedAt] = *model.RespondedAt
	}
	if model.LastUserMessageAt != nil {
		fields[models.FieldLastUserMessageAt] = *model.LastUserMessageAt
	}
	if model.LastReadAt != nil {
		fields[models.FieldLastReadAt] = *model.LastReadAt
	}
	return fields
}

func (m *TicketMapperImpl) StatusChangeFields(change ticket.StatusChange) store.Fields {
	fields := store.Fields{models.FieldStatus: change.Status.String()}
	if change.AdminID != "" {
		fields[models.FieldAdminID] = change.AdminID
	}
	if change.RespondedAt != nil {
		fields[models.FieldRespondedAt] = change.RespondedAt.UnixMilli()
	}
	return fields
}

func (m *TicketMapperImpl) UnreadChangeFields(change ticket.UnreadChange) store.Fields {
	if change.ReadOnly {
		fields := store.Fields{}
		if change.LastReadAt != nil {
			fields[models.FieldLastReadAt] = change.LastReadAt.UnixMilli()
		}
		return fields
	}

	fields := store.Fields{
		models.FieldHasUnreadUserMessage: change.HasUnread,
		// nil removes the field
		models.FieldLastUserMessageAt: nil,
	}
	if change.LastUserMessageAt != nil {
		fields[models.FieldLastUserMessageAt] = change.LastUserMessageAt.UnixMilli()
	}
	if change.LastReadAt != nil {
		fields[models.FieldLastReadAt] = change.LastReadAt.UnixMilli()
	}
	return fields
}

func (m *TicketMapperImpl) MessageToModel(msg *ticket.Message) *models.MessageModel {
	return &models.MessageModel{
		ID:         msg.ID(),
		TicketID:   msg.TicketID(),
		Text:       msg.Text(),
		ImageURL:   msg.ImageURL(),
		SenderID:   msg.SenderID(),
		SenderName: msg.SenderName(),
		SenderType: msg.SenderType().String(),
		Timestamp:  msg.Timestamp().UnixMilli(),
	}
}

func (m *TicketMapperImpl) MessageToDomain(model *models.MessageModel) (*ticket.Message, error) {
	if model == nil {
		return nil, fmt.Errorf("message model is nil")
	}
	senderType, err := vo.NewSenderType(model.SenderType)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", model.ID, err)
	}
	return ticket.ReconstructMessage(
		model.ID,
		model.TicketID,
		model.Text,
		model.ImageURL,
		model.SenderID,
		model.SenderName,
		senderType,
		biztime.FromUnixMilli(model.Timestamp),
	), nil
}

func (m *TicketMapperImpl) MessageToFields(model *models.MessageModel) store.Fields {
	fields := store.Fields{
		"ticketId":   model.TicketID,
		"senderId":   model.SenderID,
		"senderName": model.SenderName,
		"senderType": model.SenderType,
		"timestamp":  model.Timestamp,
	}
	if model.Text != "" {
		fields["text"] = model.Text
	}
	if model.ImageURL != "" {
		fields["imageUrl"] = model.ImageURL
	}
	return fields
}
