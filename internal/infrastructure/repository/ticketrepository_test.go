package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportdesk/internal/domain/ticket"
	vo "supportdesk/internal/domain/ticket/valueobjects"
	"supportdesk/internal/infrastructure/store"
	apperrors "supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/logger"
)

// brokenStore fails every call.
type brokenStore struct{}

var errBroken = errors.New("connection refused")

func (brokenStore) Get(context.Context, string) (store.Snapshot, error) {
	return store.Snapshot{}, errBroken
}
func (brokenStore) Set(context.Context, string, store.Fields) error    { return errBroken }
func (brokenStore) Update(context.Context, string, store.Fields) error { return errBroken }
func (brokenStore) Push(context.Context, string, store.Fields) (string, error) {
	return "", errBroken
}
func (brokenStore) Remove(context.Context, string) error { return errBroken }
func (brokenStore) Subscribe(context.Context, string, func(store.Snapshot)) (func(), error) {
	return nil, errBroken
}
func (brokenStore) Close() error { return nil }

func newTestTicket(t *testing.T, userID string, createdAt time.Time) *ticket.Ticket {
	t.Helper()
	tk, err := ticket.NewTicket(userID, userID+"@example.com", "User "+userID, "Cannot log in", "Password reset fails", "account", "", createdAt)
	require.NoError(t, err)
	return tk
}

func TestTicketRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(store.NewMemoryStore(logger.NewNop()), logger.NewNop())

	tk := newTestTicket(t, "u1", time.UnixMilli(1_700_000_000_000))
	require.NoError(t, repo.Create(ctx, tk))
	require.NotEmpty(t, tk.ID())

	got, err := repo.GetByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID())
	assert.Equal(t, "Cannot log in", got.Subject())
	assert.Equal(t, vo.StatusPending, got.Status())
	assert.False(t, got.HasUnreadUserMessage())
	assert.Equal(t, int64(1_700_000_000_000), got.Timestamp().UnixMilli())
}

func TestTicketRepository_GetMissing(t *testing.T) {
	repo := NewTicketRepository(store.NewMemoryStore(logger.NewNop()), logger.NewNop())

	_, err := repo.GetByID(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestTicketRepository_ListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(store.NewMemoryStore(logger.NewNop()), logger.NewNop())

	older := newTestTicket(t, "u1", time.UnixMilli(1000))
	newer := newTestTicket(t, "u1", time.UnixMilli(3000))
	other := newTestTicket(t, "u2", time.UnixMilli(2000))
	for _, tk := range []*ticket.Ticket{older, newer, other} {
		require.NoError(t, repo.Create(ctx, tk))
	}
	require.NoError(t, repo.ApplyUnreadChange(ctx, other.ID(), other.MarkUnread(time.UnixMilli(2500))))

	all, err := repo.List(ctx, ticket.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newer.ID(), all[0].ID())
	assert.Equal(t, other.ID(), all[1].ID())
	assert.Equal(t, older.ID(), all[2].ID())

	mine, err := repo.List(ctx, ticket.TicketFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	unread, err := repo.List(ctx, ticket.TicketFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, other.ID(), unread[0].ID())

	pending := vo.StatusPending
	byStatus, err := repo.List(ctx, ticket.TicketFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, byStatus, 3)
}

func TestTicketRepository_PartialUpdatesDoNotClobber(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(store.NewMemoryStore(logger.NewNop()), logger.NewNop())

	tk := newTestTicket(t, "u1", time.UnixMilli(1000))
	require.NoError(t, repo.Create(ctx, tk))

	// Two writers working from the same stale copy touch disjoint fields.
	staleA, err := repo.GetByID(ctx, tk.ID())
	require.NoError(t, err)
	staleB, err := repo.GetByID(ctx, tk.ID())
	require.NoError(t, err)

	change, err := staleA.ChangeStatus(vo.StatusResolved, "a1", time.UnixMilli(5000))
	require.NoError(t, err)
	require.NoError(t, repo.ApplyStatusChange(ctx, tk.ID(), change))
	require.NoError(t, repo.ApplyUnreadChange(ctx, tk.ID(), staleB.MarkUnread(time.UnixMilli(6000))))

	got, err := repo.GetByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusResolved, got.Status())
	assert.Equal(t, "a1", got.AdminID())
	assert.Equal(t, int64(5000), got.RespondedAt().UnixMilli())
	assert.True(t, got.HasUnreadUserMessage())
	assert.Equal(t, int64(6000), got.LastUserMessageAt().UnixMilli())
}

func TestTicketRepository_ClearUnreadRemovesTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(store.NewMemoryStore(logger.NewNop()), logger.NewNop())

	tk := newTestTicket(t, "u1", time.UnixMilli(1000))
	require.NoError(t, repo.Create(ctx, tk))
	require.NoError(t, repo.ApplyUnreadChange(ctx, tk.ID(), tk.MarkUnread(time.UnixMilli(2000))))

	change, changed := tk.ClearUnread(time.UnixMilli(3000))
	require.True(t, changed)
	require.NoError(t, repo.ApplyUnreadChange(ctx, tk.ID(), change))

	got, err := repo.GetByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.False(t, got.HasUnreadUserMessage())
	assert.Nil(t, got.LastUserMessageAt())
	require.NotNil(t, got.LastReadAt())
	assert.Equal(t, int64(3000), got.LastReadAt().UnixMilli())
}

func TestTicketRepository_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := NewTicketRepository(store.NewMemoryStore(logger.NewNop()), logger.NewNop())

	updates := make(chan []*ticket.Ticket, 8)
	unsubscribe, err := repo.Watch(ctx, func(tickets []*ticket.Ticket) {
		updates <- tickets
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case initial := <-updates:
		assert.Empty(t, initial)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial delivery")
	}

	tk := newTestTicket(t, "u1", time.UnixMilli(1000))
	require.NoError(t, repo.Create(ctx, tk))

	assert.Eventually(t, func() bool {
		for {
			select {
			case tickets := <-updates:
				if len(tickets) == 1 && tickets[0].ID() == tk.ID() {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTicketRepository_StoreFailures(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository(brokenStore{}, logger.NewNop())

	_, err := repo.GetByID(ctx, "t1")
	assert.True(t, apperrors.IsStoreUnavailableError(err))
	assert.ErrorIs(t, err, errBroken)

	_, err = repo.List(ctx, ticket.TicketFilter{})
	assert.True(t, apperrors.IsStoreUnavailableError(err))

	err = repo.ApplyStatusChange(ctx, "t1", ticket.StatusChange{Status: vo.StatusResolved})
	assert.True(t, apperrors.IsStoreUnavailableError(err))

	_, err = repo.Watch(ctx, func([]*ticket.Ticket) {})
	assert.True(t, apperrors.IsStoreUnavailableError(err))
}

func TestTicketRepository_SkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(logger.NewNop())
	repo := NewTicketRepository(s, logger.NewNop())

	require.NoError(t, repo.Create(ctx, newTestTicket(t, "u1", time.UnixMilli(1000))))
	require.NoError(t, s.Set(ctx, "tickets/bad", store.Fields{"status": "archived"}))

	tickets, err := repo.List(ctx, ticket.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}
