package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/domain/ticket"
	vo "supportdesk/internal/domain/ticket/valueobjects"
	"supportdesk/internal/infrastructure/repository"
	"supportdesk/internal/infrastructure/store"
	"supportdesk/internal/shared/logger"
)

func newPendingTicket(t *testing.T, id string) *ticket.Ticket {
	t.Helper()
	tk, err := ticket.ReconstructTicket(
		id, "u1", "dana@example.com", "Dana", "Cannot log in", "Reset link is broken", "account", "",
		vo.StatusPending, "", time.UnixMilli(1000).UTC(), nil, false, nil, nil,
	)
	require.NoError(t, err)
	return tk
}

type memoryRepos struct {
	tickets  *repository.TicketRepository
	messages *repository.MessageRepository
}

func newMemoryRepos(t *testing.T) *memoryRepos {
	t.Helper()
	s := store.NewMemoryStore(logger.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return &memoryRepos{
		tickets:  repository.NewTicketRepository(s, logger.NewNop()),
		messages: repository.NewMessageRepository(s, logger.NewNop()),
	}
}

func (r *memoryRepos) createTicket(t *testing.T) *ticket.Ticket {
	t.Helper()
	tk, err := ticket.NewTicket("u1", "dana@example.com", "Dana", "Cannot log in", "Reset link is broken", "account", "", time.UnixMilli(1000))
	require.NoError(t, err)
	require.NoError(t, r.tickets.Create(context.Background(), tk))
	return tk
}
