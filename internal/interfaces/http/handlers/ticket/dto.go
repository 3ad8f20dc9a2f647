package ticket

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ticketdto "supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/application/ticket/usecases"
	"supportdesk/internal/shared/authorization"
	"supportdesk/internal/shared/errors"
)

type CreateTicketRequest struct {
	Subject     string `json:"subject" binding:"required,max=200"`
	Description string `json:"description" binding:"required,max=5000"`
	IssueType   string `json:"issue_type" binding:"max=64"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
	UserEmail   string `json:"user_email" binding:"omitempty,email"`
	UserName    string `json:"user_name" binding:"max=100"`
}

// ToCommand fills the owner from the caller. Body values only fill what the identity
// headers left empty.
func (r *CreateTicketRequest) ToCommand(owner authorization.Identity) usecases.CreateTicketCommand {
	cmd := usecases.CreateTicketCommand{
		UserID:      owner.ID,
		UserEmail:   owner.Email,
		UserName:    owner.Name,
		Subject:     r.Subject,
		Description: r.Description,
		IssueType:   r.IssueType,
		ImageURL:    r.ImageURL,
	}
	if cmd.UserEmail == "" {
		cmd.UserEmail = r.UserEmail
	}
	if cmd.UserName == "" {
		cmd.UserName = r.UserName
	}
	return cmd
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AppendMessageRequest struct {
	Text     string `json:"text" binding:"max=10000"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
}

func (r *AppendMessageRequest) ToCommand(ticketID string, sender authorization.Identity) usecases.AppendMessageCommand {
	name := sender.Name
	if name == "" {
		name = sender.ID
	}
	return usecases.AppendMessageCommand{
		TicketID:   ticketID,
		SenderID:   sender.ID,
		SenderName: name,
		SenderType: sender.Role.SenderType(),
		Text:       r.Text,
		ImageURL:   r.ImageURL,
	}
}

// OpenTicketResponse is what an agent gets when opening a conversation.
type OpenTicketResponse struct {
	Ticket   *ticketdto.TicketDTO    `json:"ticket"`
	Messages []*ticketdto.MessageDTO `json:"messages"`
}

// parseListTicketsQuery reads ?status=&user_id=&unread=. End users only ever see
// their own tickets, whatever user_id says.
func parseListTicketsQuery(c *gin.Context, caller authorization.Identity) (usecases.ListTicketsQuery, error) {
	query := usecases.ListTicketsQuery{
		Status: strings.TrimSpace(c.Query("status")),
		UserID: strings.TrimSpace(c.Query("user_id")),
	}
	if raw := c.Query("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			return query, errors.NewValidationError("invalid unread parameter", raw)
		}
		query.UnreadOnly = unread
	}
	if !caller.Role.IsAgent() {
		query.UserID = caller.ID
	}
	return query, nil
}

func bindError(err error) error {
	return errors.NewValidationError("invalid request body", err.Error())
}
