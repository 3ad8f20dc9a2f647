// Package biztime provides the time conventions of the service.
// All times are UTC and persisted as unix milliseconds.
package biztime

import "time"

// NowUTC returns current time in UTC truncated to millisecond precision,
// the resolution records are stored with.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FromUnixMilli converts stored milliseconds to a UTC time.
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FromUnixMilliPtr is FromUnixMilli for optional fields.
func FromUnixMilliPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := FromUnixMilli(*ms)
	return &t
}

// ToUnixMilliPtr is the inverse of FromUnixMilliPtr.
func ToUnixMilliPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
