// Package id generates store keys.
package id

import (
	"crypto/rand"
	"sync"
	"time"
)

// pushAlphabet is ordered by ASCII value so that keys sort lexicographically.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

const (
	timeChars   = 8
	randomChars = 12

	// PushKeyLength is the length of every generated push key.
	PushKeyLength = timeChars + randomChars
)

// PushKeyGenerator produces 20-character keys that sort in generation order.
// The first 8 characters encode the millisecond timestamp; the remaining 12 are random.
// Keys generated within the same millisecond, or after the clock moved backwards,
// reuse the last timestamp and increment the random suffix, so every key is
// strictly greater than the previous one.
type PushKeyGenerator struct {
	mu       sync.Mutex
	now      func() time.Time
	lastTime int64
	lastRand [randomChars]int
}

func NewPushKeyGenerator() *PushKeyGenerator {
	return &PushKeyGenerator{now: time.Now}
}

// NewPushKeyGeneratorWithClock is used by tests to control time.
func NewPushKeyGeneratorWithClock(now func() time.Time) *PushKeyGenerator {
	return &PushKeyGenerator{now: now}
}

// Next returns the next key.
func (g *PushKeyGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli()
	if ts > g.lastTime {
		var buf [randomChars]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", err
		}
		for i, b := range buf {
			g.lastRand[i] = int(b) % len(pushAlphabet)
		}
		g.lastTime = ts
	} else {
		g.increment()
	}

	key := make([]byte, PushKeyLength)
	encodeTime(key, g.lastTime)
	for i, r := range g.lastRand {
		key[timeChars+i] = pushAlphabet[r]
	}
	return string(key), nil
}

// SequencedPushKey builds a key from a millisecond timestamp and a sequence number
// handed out by a shared counter. Keys sort by ms, then by seq.
func SequencedPushKey(ms int64, seq uint64) string {
	key := make([]byte, PushKeyLength)
	encodeTime(key, ms)
	for i := PushKeyLength - 1; i >= timeChars; i-- {
		key[i] = pushAlphabet[seq%uint64(len(pushAlphabet))]
		seq /= uint64(len(pushAlphabet))
	}
	return string(key)
}

func encodeTime(key []byte, ms int64) {
	for i := timeChars - 1; i >= 0; i-- {
		key[i] = pushAlphabet[ms%int64(len(pushAlphabet))]
		ms /= int64(len(pushAlphabet))
	}
}

func (g *PushKeyGenerator) increment() {
	i := randomChars - 1
	for ; i >= 0 && g.lastRand[i] == len(pushAlphabet)-1; i-- {
		g.lastRand[i] = 0
	}
	if i < 0 {
		// suffix space exhausted for this millisecond; borrow the next one
		g.lastTime++
		return
	}
	g.lastRand[i]++
}
