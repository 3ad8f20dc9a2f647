package dto

import (
	"time"

	"supportdesk/internal/domain/ticket"
	"supportdesk/internal/shared/mapper"
)

type TicketDTO struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	UserEmail            string     `json:"user_email"`
	UserName             string     `json:"user_name"`
	Subject              string     `json:"subject"`
	Description          string     `json:"description"`
	IssueType            string     `json:"issue_type"`
	ImageURL             string     `json:"image_url,omitempty"`
	Status               string     `json:"status"`
	AdminID              string     `json:"admin_id,omitempty"`
	Timestamp            time.Time  `json:"timestamp"`
	RespondedAt          *time.Time `json:"responded_at,omitempty"`
	HasUnreadUserMessage bool       `json:"has_unread_user_message"`
	LastUserMessageAt    *time.Time `json:"last_user_message_at,omitempty"`
}

type MessageDTO struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Text       string    `json:"text,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SenderType string    `json:"sender_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatsDTO holds the aggregate counts shown above the agent ticket list.
type StatsDTO struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Unread     int `json:"unread"`
}

func ToTicketDTO(t *ticket.Ticket) *TicketDTO {
	if t == nil {
		return nil
	}

	return &TicketDTO{
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
		Timestamp:            t.Timestamp(),
		RespondedAt:          t.RespondedAt(),
		HasUnreadUserMessage: t.HasUnreadUserMessage(),
		LastUserMessageAt:    t.LastUserMessageAt(),
	}
}

func ToMessageDTO(m *ticket.Message) *MessageDTO {
	if m == nil {
		return nil
	}

	return &MessageDTO{
		ID:         m.ID(),
		TicketID:   m.TicketID(),
		Text:       m.Text(),
		ImageURL:   m.ImageURL(),
		SenderID:   m.SenderID(),
		SenderName: m.SenderName(),
		SenderType: m.SenderType().String(),
		Timestamp:  m.Timestamp(),
	}
}

func ToTicketDTOList(tickets []*ticket.Ticket) []*TicketDTO {
	return mapper.MapSlice(tickets, ToTicketDTO)
}

func ToMessageDTOList(messages []*ticket.Message) []*MessageDTO {
	return mapper.MapSlice(messages, ToMessageDTO)
}

func NewStats(tickets []*ticket.Ticket) StatsDTO {
	stats := StatsDTO{Total: len(tickets)}
	for _, t := range tickets {
		switch {
		case t.Status().IsPending():
			stats.Pending++
		case t.Status().IsInProgress():
			stats.InProgress++
		case t.Status().IsResolved():
			stats.Resolved++
		}
		if t.HasUnreadUserMessage() {
			stats.Unread++
		}
	}
	return stats
}
