package ticket

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportdesk/internal/application/ticket/conversation"
	ticketdto "supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/application/ticket/ticketlist"
	"supportdesk/internal/shared/constants"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

const (
	// SSEKeepaliveInterval is the interval for sending keepalive comments.
	SSEKeepaliveInterval = 30 * time.Second

	EventTicketList  = "tickets"
	EventNewMessages = "messages"

	// messageBuffer holds new-message batches while the client is being written to.
	messageBuffer = 16
)

// ListFeed is the live ticket list.
type ListFeed interface {
	Subscribe(fn func(ticketlist.ListView)) func()
}

// ConversationSession polls the conversations opened by one client.
type ConversationSession interface {
	Open(ctx context.Context, ticketID string, onNew conversation.OnNewMessages) (*conversation.Handle, error)
	Shutdown() error
}

// SessionFactory starts a session per stream, so that two clients watching the same
// ticket do not replace each other's poll.
type SessionFactory func() (ConversationSession, error)

// StreamHandler serves the server-sent event streams.
type StreamHandler struct {
	lists      ListFeed
	sessions   SessionFactory
	tickets    *TicketHandler
	keepalive  time.Duration
	logger     logger.Interface
	done       chan struct{}
	closeOnce  sync.Once
	activeConn sync.WaitGroup
}

func NewStreamHandler(lists ListFeed, sessions SessionFactory, tickets *TicketHandler, log logger.Interface) *StreamHandler {
	return &StreamHandler{
		lists:     lists,
		sessions:  sessions,
		tickets:   tickets,
		keepalive: SSEKeepaliveInterval,
		logger:    log,
		done:      make(chan struct{}),
	}
}

// StreamTickets handles GET /tickets/stream. Each event carries the full list view.
// A slow client only ever gets the newest view.
func (h *StreamHandler) StreamTickets(c *gin.Context) {
	latest := make(chan ticketlist.ListView, 1)
	unsubscribe := h.lists.Subscribe(func(view ticketlist.ListView) {
		for {
			select {
			case latest <- view:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	})
	defer unsubscribe()

	h.serve(c, "ticket list", func(ctx context.Context) (string, any, bool) {
		select {
		case view := <-latest:
			return EventTicketList, view, true
		case <-ctx.Done():
			return "", nil, false
		}
	})
}

// StreamMessages handles GET /tickets/:id/messages/stream. Messages already in the
// conversation come first; later events carry only the ones that arrived since.
func (h *StreamHandler) StreamMessages(c *gin.Context) {
	t, ok := h.tickets.loadAccessibleTicket(c)
	if !ok {
		return
	}

	session, err := h.sessions()
	if err != nil {
		h.logger.Errorw("failed to start conversation session", "ticket_id", t.ID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	defer func() {
		if err := session.Shutdown(); err != nil {
			h.logger.Warnw("failed to stop conversation session", "ticket_id", t.ID, "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	batches := make(chan []*ticketdto.MessageDTO, messageBuffer)
	_, err = session.Open(ctx, t.ID, func(messages []*ticketdto.MessageDTO) {
		select {
		case batches <- messages:
		case <-ctx.Done():
		}
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.serve(c, "conversation", func(ctx context.Context) (string, any, bool) {
		select {
		case batch := <-batches:
			return EventNewMessages, batch, true
		case <-ctx.Done():
			return "", nil, false
		}
	})
}

// Close ends every open stream. Used before the HTTP server shuts down, since streams
// never go idle on their own.
func (h *StreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	h.activeConn.Wait()
}

// serve writes events produced by next until the client leaves or the handler closes.
func (h *StreamHandler) serve(c *gin.Context, kind string, next func(ctx context.Context) (string, any, bool)) {
	h.activeConn.Add(1)
	defer h.activeConn.Done()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	connID := uuid.NewString()
	h.setupSSEResponse(c)
	if _, err := c.Writer.WriteString(": connected\n\n"); err != nil {
		return
	}
	c.Writer.Flush()
	h.logger.Debugw("sse stream opened", "kind", kind, "conn_id", connID, "path", c.Request.URL.Path)
	defer h.logger.Debugw("sse stream closed", "kind", kind, "conn_id", connID)

	events := make(chan sseEvent)
	go func() {
		defer close(events)
		for {
			name, data, ok := next(ctx)
			if !ok {
				return
			}
			select {
			case events <- sseEvent{name: name, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepAlive := time.NewTicker(h.keepalive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(ev.name, ev.data)
			c.Writer.Flush()
		case <-keepAlive.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func (h *StreamHandler) setupSSEResponse(c *gin.Context) {
	c.Header("Content-Type", constants.ContentTypeSSE)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(200)
}

type sseEvent struct {
	name string
	data any
}
