package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportdesk/internal/shared/logger"
)

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "messages/t1/m1", Join("messages", "t1", "m1"))
	assert.Equal(t, "messages/t1", Parent("messages/t1/m1"))
	assert.Equal(t, "", Parent("tickets"))
	assert.Equal(t, "m1", Base("messages/t1/m1"))
	assert.Equal(t, []string{"messages", "messages/t1"}, ancestors("messages/t1/m1"))

	assert.NoError(t, ValidatePath("tickets/abc"))
	assert.ErrorIs(t, ValidatePath(""), ErrInvalidPath)
	assert.ErrorIs(t, ValidatePath("tickets//abc"), ErrInvalidPath)
	assert.ErrorIs(t, ValidatePath("/tickets"), ErrInvalidPath)
}

func TestAffects(t *testing.T) {
	assert.True(t, affects("tickets", "tickets/t1"))
	assert.True(t, affects("messages/t1", "messages/t1/m9"))
	assert.True(t, affects("messages/t1", "messages"))
	assert.True(t, affects("tickets/t1", "tickets/t1"))
	assert.False(t, affects("messages/t1", "messages/t10/m1"))
	assert.False(t, affects("tickets", "messages/t1"))
}

func TestRecordDecode(t *testing.T) {
	r := Record{"subject": []byte(`"Login"`), "hasUnreadUserMessage": []byte(`true`)}

	var out struct {
		Subject string `json:"subject"`
		Unread  bool   `json:"hasUnreadUserMessage"`
	}
	require.NoError(t, r.Decode(&out))
	assert.Equal(t, "Login", out.Subject)
	assert.True(t, out.Unread)
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"subject": "Login", "status": "pending"}))

		snap, err := s.Get(ctx, "tickets/t1")
		require.NoError(t, err)
		assert.True(t, snap.Exists())
		assert.JSONEq(t, `"Login"`, string(snap.Record["subject"]))

		list, err := s.Get(ctx, "tickets")
		require.NoError(t, err)
		require.Len(t, list.Children, 1)
		assert.Equal(t, "t1", list.Children[0].Key)
		assert.JSONEq(t, `"pending"`, string(list.Children[0].Record["status"]))
	})

	t.Run("set replaces record", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"a": 1, "b": 2}))
		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"a": 3}))

		snap, err := s.Get(ctx, "tickets/t1")
		require.NoError(t, err)
		assert.Len(t, snap.Record, 1)
		assert.JSONEq(t, `3`, string(snap.Record["a"]))
	})

	t.Run("set rejects empty record", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Set(ctx, "tickets/t1", Fields{}), ErrEmptyRecord)
	})

	t.Run("missing path is empty", func(t *testing.T) {
		s := newStore(t)
		snap, err := s.Get(ctx, "tickets/nope")
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})

	t.Run("update merges and removes fields", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"status": "pending", "hasUnreadUserMessage": true, "lastUserMessageAt": 100}))

		require.NoError(t, s.Update(ctx, "tickets/t1", Fields{"status": "in_progress"}))
		require.NoError(t, s.Update(ctx, "tickets/t1", Fields{"hasUnreadUserMessage": false, "lastUserMessageAt": nil}))

		snap, err := s.Get(ctx, "tickets/t1")
		require.NoError(t, err)
		assert.JSONEq(t, `"in_progress"`, string(snap.Record["status"]))
		assert.JSONEq(t, `false`, string(snap.Record["hasUnreadUserMessage"]))
		assert.NotContains(t, snap.Record, "lastUserMessageAt")
	})

	t.Run("concurrent updates to different fields both land", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"status": "pending"}))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Update(ctx, "tickets/t1", Fields{"status": "resolved"}))
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Update(ctx, "tickets/t1", Fields{"hasUnreadUserMessage": true}))
			}()
		}
		wg.Wait()

		snap, err := s.Get(ctx, "tickets/t1")
		require.NoError(t, err)
		assert.JSONEq(t, `"resolved"`, string(snap.Record["status"]))
		assert.JSONEq(t, `true`, string(snap.Record["hasUnreadUserMessage"]))
	})

	t.Run("push keys keep insertion order", func(t *testing.T) {
		s := newStore(t)
		var keys []string
		for i := 0; i < 20; i++ {
			key, err := s.Push(ctx, "messages/t1", Fields{"text": i})
			require.NoError(t, err)
			keys = append(keys, key)
		}

		snap, err := s.Get(ctx, "messages/t1")
		require.NoError(t, err)
		require.Len(t, snap.Children, 20)
		for i, child := range snap.Children {
			assert.Equal(t, keys[i], child.Key)
		}
	})

	t.Run("remove deletes subtree", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Push(ctx, "messages/t1", Fields{"text": "hi"})
		require.NoError(t, err)
		_, err = s.Push(ctx, "messages/t10", Fields{"text": "other"})
		require.NoError(t, err)

		require.NoError(t, s.Remove(ctx, "messages/t1"))

		snap, err := s.Get(ctx, "messages/t1")
		require.NoError(t, err)
		assert.False(t, snap.Exists())

		other, err := s.Get(ctx, "messages/t10")
		require.NoError(t, err)
		assert.Len(t, other.Children, 1)
	})

	t.Run("subscribe delivers initial and changed snapshots", func(t *testing.T) {
		s := newStore(t)
		updates := make(chan Snapshot, 16)
		unsubscribe, err := s.Subscribe(ctx, "tickets", func(snap Snapshot) { updates <- snap })
		require.NoError(t, err)
		defer unsubscribe()

		first := receive(t, updates)
		assert.Empty(t, first.Children)

		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"status": "pending"}))
		assert.Eventually(t, func() bool {
			select {
			case snap := <-updates:
				return len(snap.Children) == 1
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		s := newStore(t)
		updates := make(chan Snapshot, 16)
		unsubscribe, err := s.Subscribe(ctx, "tickets", func(snap Snapshot) { updates <- snap })
		require.NoError(t, err)
		receive(t, updates)

		unsubscribe()
		unsubscribe()
		require.NoError(t, s.Set(ctx, "tickets/t1", Fields{"status": "pending"}))

		select {
		case <-updates:
			t.Fatal("received update after unsubscribe")
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestPinger(t *testing.T) {
	s := NewMemoryStore(logger.NewNop())
	assert.NoError(t, Pinger{Store: s}.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pinger{Store: s}.Ping(ctx), ErrUnavailable)
}
