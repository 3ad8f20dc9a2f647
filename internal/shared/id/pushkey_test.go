package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushKey_SameMillisecondIsStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := NewPushKeyGeneratorWithClock(func() time.Time { return fixed })

	keys := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		k, err := g.Next()
		require.NoError(t, err)
		require.Len(t, k, PushKeyLength)
		keys = append(keys, k)
	}

	assert.True(t, sort.StringsAreSorted(keys))
	for i := 1; i < len(keys); i++ {
		assert.NotEqual(t, keys[i-1], keys[i])
	}
}

func TestPushKey_ClockGoingBackwards(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_500)
	g := NewPushKeyGeneratorWithClock(func() time.Time { return now })

	first, err := g.Next()
	require.NoError(t, err)

	now = now.Add(-time.Second)
	second, err := g.Next()
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

func TestPushKey_LaterTimeSortsLater(t *testing.T) {
	now := time.UnixMilli(1_600_000_000_000)
	g := NewPushKeyGeneratorWithClock(func() time.Time { return now })

	a, err := g.Next()
	require.NoError(t, err)
	now = now.Add(time.Millisecond)
	b, err := g.Next()
	require.NoError(t, err)

	assert.Greater(t, b, a)
	assert.NotEqual(t, a[:timeChars], b[:timeChars])
}

func TestPushKey_IncrementCarries(t *testing.T) {
	g := NewPushKeyGenerator()
	g.lastTime = 10
	for i := range g.lastRand {
		g.lastRand[i] = len(pushAlphabet) - 1
	}
	g.lastRand[0] = 3

	g.increment()

	assert.Equal(t, 4, g.lastRand[0])
	for i := 1; i < randomChars; i++ {
		assert.Equal(t, 0, g.lastRand[i])
	}
	assert.Equal(t, int64(10), g.lastTime)
}

func TestSequencedPushKey(t *testing.T) {
	ms := int64(1_700_000_000_000)

	keys := []string{
		SequencedPushKey(ms, 1),
		SequencedPushKey(ms, 2),
		SequencedPushKey(ms, 64),
		SequencedPushKey(ms, 65),
		SequencedPushKey(ms+1, 3),
	}

	for _, k := range keys {
		assert.Len(t, k, PushKeyLength)
	}
	assert.True(t, sort.StringsAreSorted(keys))

	generated, err := NewPushKeyGeneratorWithClock(func() time.Time { return time.UnixMilli(ms) }).Next()
	require.NoError(t, err)
	assert.Equal(t, generated[:8], keys[0][:8])
}
