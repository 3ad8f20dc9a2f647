package ticket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	ticketdto "supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/application/ticket/usecases"
	"supportdesk/internal/shared/authorization"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

// DeepLinkResolver finds the ticket a notification link points at.
type DeepLinkResolver interface {
	ResolveDeepLink(ctx context.Context, ticketID, userID string) (*ticketdto.TicketDTO, error)
}

type TicketHandler struct {
	createTicketUC    usecases.CreateTicketExecutor
	getTicketUC       usecases.GetTicketExecutor
	listTicketsUC     usecases.ListTicketsExecutor
	setStatusUC       usecases.SetStatusExecutor
	clearUnreadUC     usecases.ClearUnreadExecutor
	recomputeUnreadUC usecases.RecomputeUnreadExecutor
	appendMessageUC   usecases.AppendMessageExecutor
	listMessagesUC    usecases.ListMessagesExecutor
	deepLinks         DeepLinkResolver
	logger            logger.Interface
}

func NewTicketHandler(
	createTicketUC usecases.CreateTicketExecutor,
	getTicketUC usecases.GetTicketExecutor,
	listTicketsUC usecases.ListTicketsExecutor,
	setStatusUC usecases.SetStatusExecutor,
	clearUnreadUC usecases.ClearUnreadExecutor,
	recomputeUnreadUC usecases.RecomputeUnreadExecutor,
	appendMessageUC usecases.AppendMessageExecutor,
	listMessagesUC usecases.ListMessagesExecutor,
	deepLinks DeepLinkResolver,
	log logger.Interface,
) *TicketHandler {
	return &TicketHandler{
		createTicketUC:    createTicketUC,
		getTicketUC:       getTicketUC,
		listTicketsUC:     listTicketsUC,
		setStatusUC:       setStatusUC,
		clearUnreadUC:     clearUnreadUC,
		recomputeUnreadUC: recomputeUnreadUC,
		appendMessageUC:   appendMessageUC,
		listMessagesUC:    listMessagesUC,
		deepLinks:         deepLinks,
		logger:            log,
	}
}

// CreateTicket handles POST /tickets. Only end users open tickets.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	caller, ok := authorization.FromContext(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("caller identity required"))
		return
	}
	if caller.Role.IsAgent() {
		utils.ErrorResponseWithError(c, errors.NewForbiddenError("tickets are opened by end users"))
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create ticket", "error", err)
		utils.ErrorResponseWithError(c, bindError(err))
		return
	}

	result, err := h.createTicketUC.Execute(c.Request.Context(), req.ToCommand(caller))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Ticket created successfully")
}

// ListTickets handles GET /tickets
func (h *TicketHandler) ListTickets(c *gin.Context) {
	caller, _ := authorization.FromContext(c)

	query, err := parseListTicketsQuery(c, caller)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.listTicketsUC.Execute(c.Request.Context(), query)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.OKResponse(c, result)
}

// GetTicket handles GET /tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	t, ok := h.loadAccessibleTicket(c)
	if !ok {
		return
	}
	utils.OKResponse(c, t)
}

// OpenTicket handles POST /tickets/:id/open. The unread flag is cleared before the
// first message fetch.
func (h *TicketHandler) OpenTicket(c *gin.Context) {
	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	if err := h.clearUnreadUC.Execute(ctx, usecases.ClearUnreadCommand{TicketID: ticketID}); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	t, err := h.getTicketUC.Execute(ctx, usecases.GetTicketQuery{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	messages, err := h.listMessagesUC.Execute(ctx, usecases.ListMessagesQuery{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if messages == nil {
		messages = []*ticketdto.MessageDTO{}
	}

	utils.OKResponse(c, OpenTicketResponse{Ticket: t, Messages: messages})
}

// UpdateStatus handles PATCH /tickets/:id/status
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for update status", "ticket_id", ticketID, "error", err)
		utils.ErrorResponseWithError(c, bindError(err))
		return
	}

	caller, _ := authorization.FromContext(c)
	result, err := h.setStatusUC.Execute(c.Request.Context(), usecases.SetStatusCommand{
		TicketID: ticketID,
		Status:   req.Status,
		AgentID:  caller.ID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ticket status updated", result)
}

// RecomputeUnread handles POST /tickets/:id/unread/recompute
func (h *TicketHandler) RecomputeUnread(c *gin.Context) {
	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.recomputeUnreadUC.Execute(c.Request.Context(), usecases.RecomputeUnreadCommand{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.OKResponse(c, result)
}

// ListMessages handles GET /tickets/:id/messages
func (h *TicketHandler) ListMessages(c *gin.Context) {
	t, ok := h.loadAccessibleTicket(c)
	if !ok {
		return
	}

	messages, err := h.listMessagesUC.Execute(c.Request.Context(), usecases.ListMessagesQuery{TicketID: t.ID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if messages == nil {
		messages = []*ticketdto.MessageDTO{}
	}

	utils.OKResponse(c, messages)
}

// AppendMessage handles POST /tickets/:id/messages. The sender type follows the
// caller's role.
func (h *TicketHandler) AppendMessage(c *gin.Context) {
	t, ok := h.loadAccessibleTicket(c)
	if !ok {
		return
	}

	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for append message", "ticket_id", t.ID, "error", err)
		utils.ErrorResponseWithError(c, bindError(err))
		return
	}

	caller, _ := authorization.FromContext(c)
	result, err := h.appendMessageUC.Execute(c.Request.Context(), req.ToCommand(t.ID, caller))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Message sent")
}

// ResolveDeepLink handles GET /tickets/resolve?ticket_id=&user_id=
func (h *TicketHandler) ResolveDeepLink(c *gin.Context) {
	result, err := h.deepLinks.ResolveDeepLink(c.Request.Context(), c.Query("ticket_id"), c.Query("user_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.OKResponse(c, result)
}

// loadAccessibleTicket reads the :id ticket and checks that the caller may see it.
// End users asking for someone else's ticket get a not found, as if it did not exist.
// On failure the response has been written.
func (h *TicketHandler) loadAccessibleTicket(c *gin.Context) (*ticketdto.TicketDTO, bool) {
	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return nil, false
	}

	caller, ok := authorization.FromContext(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("caller identity required"))
		return nil, false
	}

	t, err := h.getTicketUC.Execute(c.Request.Context(), usecases.GetTicketQuery{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return nil, false
	}

	if !authorization.CanAccessTicket(caller, t.UserID) {
		h.logger.Warnw("ticket access denied", "ticket_id", ticketID, "caller_id", caller.ID)
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("ticket not found", ticketID))
		return nil, false
	}

	return t, true
}
