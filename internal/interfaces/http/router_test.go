package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ticketdto "supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/application/ticket/usecases"
	"supportdesk/internal/infrastructure/config"
	"supportdesk/internal/interfaces/http/handlers/testutil"
	tickethandlers "supportdesk/internal/interfaces/http/handlers/ticket"
	sharedConfig "supportdesk/internal/shared/config"
	"supportdesk/internal/shared/constants"
	"supportdesk/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()

	cfg := &config.Config{
		Server: sharedConfig.ServerConfig{AllowedOrigins: []string{"*"}},
		Store:  sharedConfig.StoreConfig{Driver: "memory"},
		Sync:   sharedConfig.SyncConfig{PollInterval: 50 * time.Millisecond},
		Notification: sharedConfig.NotificationConfig{
			Transport: "log",
			Timeout:   time.Second,
		},
	}

	c, err := NewContainer(context.Background(), cfg, false, logger.NewNop())
	require.NoError(t, err)
	c.SetupRoutes()
	require.NoError(t, c.Start(context.Background()))

	t.Cleanup(func() {
		c.CloseStreams()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, c.Shutdown(ctx))
	})
	return c
}

type caller map[string]string

var (
	agent = caller{constants.HeaderAgentID: "a1", constants.HeaderAgentName: "Alice"}
	owner = caller{constants.HeaderUserID: "u1", constants.HeaderUserName: "Uma", constants.HeaderUserEmail: "uma@example.com"}
	other = caller{constants.HeaderUserID: "u2"}
)

func do(t *testing.T, c *Container, method, path string, who caller, body any) (int, testutil.APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range who {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.Engine().ServeHTTP(w, req)

	var resp testutil.APIResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func decode[T any](t *testing.T, resp testutil.APIResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func TestRouter_ConversationLifecycle(t *testing.T) {
	c := newTestContainer(t)

	code, resp := do(t, c, http.MethodPost, "/api/v1/tickets", owner, tickethandlers.CreateTicketRequest{
		Subject:     "Refund not received",
		Description: "I was charged twice",
		IssueType:   "billing",
	})
	require.Equal(t, http.StatusCreated, code)
	created := decode[ticketdto.TicketDTO](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "uma@example.com", created.UserEmail)

	base := "/api/v1/tickets/" + created.ID

	// the owner writes: ticket becomes unread
	code, _ = do(t, c, http.MethodPost, base+"/messages", owner, tickethandlers.AppendMessageRequest{Text: "Any news?"})
	require.Equal(t, http.StatusCreated, code)

	code, resp = do(t, c, http.MethodGet, "/api/v1/tickets?unread=true", agent, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[usecases.ListTicketsResult](t, resp)
	require.Len(t, list.Tickets, 1)
	assert.True(t, list.Tickets[0].HasUnreadUserMessage)
	assert.NotNil(t, list.Tickets[0].LastUserMessageAt)
	assert.Equal(t, 1, list.Stats.Unread)

	// the agent opens: unread cleared, conversation returned
	code, resp = do(t, c, http.MethodPost, base+"/open", agent, nil)
	require.Equal(t, http.StatusOK, code)
	opened := decode[tickethandlers.OpenTicketResponse](t, resp)
	assert.False(t, opened.Ticket.HasUnreadUserMessage)
	assert.Nil(t, opened.Ticket.LastUserMessageAt)
	require.Len(t, opened.Messages, 1)
	assert.Equal(t, "user", opened.Messages[0].SenderType)

	// the agent replies: first reply starts progress
	code, _ = do(t, c, http.MethodPost, base+"/messages", agent, tickethandlers.AppendMessageRequest{Text: "Looking into it"})
	require.Equal(t, http.StatusCreated, code)

	code, resp = do(t, c, http.MethodGet, base, owner, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[ticketdto.TicketDTO](t, resp)
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, "a1", got.AdminID)
	assert.False(t, got.HasUnreadUserMessage)

	code, resp = do(t, c, http.MethodGet, base+"/messages", owner, nil)
	require.Equal(t, http.StatusOK, code)
	messages := decode[[]ticketdto.MessageDTO](t, resp)
	require.Len(t, messages, 2)
	assert.Equal(t, "Any news?", messages[0].Text)
	assert.Equal(t, "Looking into it", messages[1].Text)
	assert.Equal(t, "Alice", messages[1].SenderName)

	// resolve
	code, resp = do(t, c, http.MethodPatch, base+"/status", agent, tickethandlers.UpdateStatusRequest{Status: "resolved"})
	require.Equal(t, http.StatusOK, code)
	resolved := decode[ticketdto.TicketDTO](t, resp)
	assert.Equal(t, "resolved", resolved.Status)
	assert.NotNil(t, resolved.RespondedAt)

	// the live list has caught up
	require.Eventually(t, func() bool {
		view, ok := c.ticketList.Current()
		return ok && view.Stats.Resolved == 1 && view.Stats.Total == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_AccessRules(t *testing.T) {
	c := newTestContainer(t)

	code, resp := do(t, c, http.MethodPost, "/api/v1/tickets", owner, tickethandlers.CreateTicketRequest{
		Subject:     "Login broken",
		Description: "Nothing happens",
	})
	require.Equal(t, http.StatusCreated, code)
	id := decode[ticketdto.TicketDTO](t, resp).ID
	base := "/api/v1/tickets/" + id

	tests := []struct {
		name     string
		method   string
		path     string
		who      caller
		body     any
		wantCode int
	}{
		{"anonymous list", http.MethodGet, "/api/v1/tickets", nil, nil, http.StatusUnauthorized},
		{"agent creates ticket", http.MethodPost, "/api/v1/tickets", agent, tickethandlers.CreateTicketRequest{Subject: "s", Description: "d"}, http.StatusForbidden},
		{"user opens ticket", http.MethodPost, base + "/open", owner, nil, http.StatusForbidden},
		{"user changes status", http.MethodPatch, base + "/status", owner, tickethandlers.UpdateStatusRequest{Status: "resolved"}, http.StatusForbidden},
		{"user streams list", http.MethodGet, "/api/v1/tickets/stream", owner, nil, http.StatusForbidden},
		{"other user reads ticket", http.MethodGet, base, other, nil, http.StatusNotFound},
		{"other user writes", http.MethodPost, base + "/messages", other, tickethandlers.AppendMessageRequest{Text: "hi"}, http.StatusNotFound},
		{"unknown status", http.MethodPatch, base + "/status", agent, tickethandlers.UpdateStatusRequest{Status: "closed"}, http.StatusBadRequest},
		{"empty message", http.MethodPost, base + "/messages", agent, tickethandlers.AppendMessageRequest{}, http.StatusBadRequest},
		{"missing ticket", http.MethodGet, "/api/v1/tickets/does-not-exist", agent, nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v1/nothing", agent, nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, c, tt.method, tt.path, tt.who, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, resp.Success)
		})
	}
}

func TestRouter_DeepLinkFallsBackToUsersNewestTicket(t *testing.T) {
	c := newTestContainer(t)

	var last string
	for _, subject := range []string{"first", "second"} {
		code, resp := do(t, c, http.MethodPost, "/api/v1/tickets", owner, tickethandlers.CreateTicketRequest{Subject: subject, Description: "d"})
		require.Equal(t, http.StatusCreated, code)
		last = decode[ticketdto.TicketDTO](t, resp).ID
		time.Sleep(2 * time.Millisecond)
	}

	code, resp := do(t, c, http.MethodGet, "/api/v1/tickets/resolve?ticket_id=gone&user_id=u1", agent, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, last, decode[ticketdto.TicketDTO](t, resp).ID)

	code, _ = do(t, c, http.MethodGet, "/api/v1/tickets/resolve", agent, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_HealthAndCORS(t *testing.T) {
	c := newTestContainer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	c.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/tickets", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	w = httptest.NewRecorder()
	c.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
