package ticket

import (
	"context"

	"supportdesk/internal/application/ticket/conversation"
	ticketdto "supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/application/ticket/ticketlist"
	"supportdesk/internal/application/ticket/usecases"
)

type mockCreateTicketUC struct {
	result *ticketdto.TicketDTO
	err    error
	got    usecases.CreateTicketCommand
}

func (m *mockCreateTicketUC) Execute(_ context.Context, cmd usecases.CreateTicketCommand) (*ticketdto.TicketDTO, error) {
	m.got = cmd
	return m.result, m.err
}

type mockGetTicketUC struct {
	result *ticketdto.TicketDTO
	err    error
}

func (m *mockGetTicketUC) Execute(_ context.Context, _ usecases.GetTicketQuery) (*ticketdto.TicketDTO, error) {
	return m.result, m.err
}

type mockListTicketsUC struct {
	result *usecases.ListTicketsResult
	err    error
	got    usecases.ListTicketsQuery
}

func (m *mockListTicketsUC) Execute(_ context.Context, query usecases.ListTicketsQuery) (*usecases.ListTicketsResult, error) {
	m.got = query
	return m.result, m.err
}

type mockSetStatusUC struct {
	result *ticketdto.TicketDTO
	err    error
	got    usecases.SetStatusCommand
}

func (m *mockSetStatusUC) Execute(_ context.Context, cmd usecases.SetStatusCommand) (*ticketdto.TicketDTO, error) {
	m.got = cmd
	return m.result, m.err
}

type mockClearUnreadUC struct {
	err   error
	calls int
	// onCall lets a test observe ordering against other use cases.
	onCall func()
}

func (m *mockClearUnreadUC) Execute(_ context.Context, _ usecases.ClearUnreadCommand) error {
	m.calls++
	if m.onCall != nil {
		m.onCall()
	}
	return m.err
}

type mockRecomputeUnreadUC struct {
	result *ticketdto.TicketDTO
	err    error
}

func (m *mockRecomputeUnreadUC) Execute(_ context.Context, _ usecases.RecomputeUnreadCommand) (*ticketdto.TicketDTO, error) {
	return m.result, m.err
}

type mockAppendMessageUC struct {
	result *usecases.AppendMessageResult
	err    error
	got    usecases.AppendMessageCommand
	calls  int
}

func (m *mockAppendMessageUC) Execute(_ context.Context, cmd usecases.AppendMessageCommand) (*usecases.AppendMessageResult, error) {
	m.calls++
	m.got = cmd
	return m.result, m.err
}

type mockListMessagesUC struct {
	result []*ticketdto.MessageDTO
	err    error
	onCall func()
}

func (m *mockListMessagesUC) Execute(_ context.Context, _ usecases.ListMessagesQuery) ([]*ticketdto.MessageDTO, error) {
	if m.onCall != nil {
		m.onCall()
	}
	return m.result, m.err
}

type mockDeepLinks struct {
	result      *ticketdto.TicketDTO
	err         error
	gotTicketID string
	gotUserID   string
}

func (m *mockDeepLinks) ResolveDeepLink(_ context.Context, ticketID, userID string) (*ticketdto.TicketDTO, error) {
	m.gotTicketID = ticketID
	m.gotUserID = userID
	return m.result, m.err
}

// mockListFeed delivers view to every subscriber right away.
type mockListFeed struct {
	view         ticketlist.ListView
	unsubscribed chan struct{}
}

func (m *mockListFeed) Subscribe(fn func(ticketlist.ListView)) func() {
	fn(m.view)
	return func() { close(m.unsubscribed) }
}

// mockSession surfaces initial as the first poll, like the synchronizer does.
type mockSession struct {
	initial  []*ticketdto.MessageDTO
	openErr  error
	openedID string
	onNew    conversation.OnNewMessages
	shutdown chan struct{}
}

func (m *mockSession) Open(_ context.Context, ticketID string, onNew conversation.OnNewMessages) (*conversation.Handle, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.openedID = ticketID
	m.onNew = onNew
	if len(m.initial) > 0 {
		onNew(m.initial)
	}
	return nil, nil
}

func (m *mockSession) Shutdown() error {
	close(m.shutdown)
	return nil
}
