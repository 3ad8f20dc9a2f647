// Package store is the hierarchical key/value Store Adapter the conversation engine persists to.
//
// Data lives at slash-separated paths. A node may hold a record (a flat map of named
// JSON fields) and child nodes. Tickets are stored at tickets/{ticketId} and messages at
// messages/{ticketId}/{messageId}. Writes are partial: Update merges the given fields into
// the record and leaves every other field untouched, so concurrent writers to different
// fields of the same record never overwrite each other.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable wraps every backend failure (network, driver, timeout).
	ErrUnavailable = errors.New("store unavailable")
	// ErrInvalidPath is returned for empty paths or paths with empty segments.
	ErrInvalidPath = errors.New("invalid store path")
	// ErrEmptyRecord is returned when Set or Push is given no fields.
	ErrEmptyRecord = errors.New("empty record")
)

// Fields is the input of a write. A nil value in Update removes the field.
type Fields map[string]any

// Record is a stored record: field name to raw JSON value.
type Record map[string]json.RawMessage

// Decode unmarshals the record into v as if it were one JSON object.
func (r Record) Decode(v any) error {
	data, err := json.Marshal(map[string]json.RawMessage(r))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Child is a direct child of a snapshot's node.
type Child struct {
	Key    string
	Record Record
}

// Snapshot is the state of one node: its record and its direct children ordered by key.
// Push keys sort in insertion order, so children created with Push come back in the order
// they were written.
type Snapshot struct {
	Path     string
	Record   Record
	Children []Child
}

// Exists reports whether anything is stored at or below the snapshot's path.
func (s Snapshot) Exists() bool {
	return len(s.Record) > 0 || len(s.Children) > 0
}

// Store is implemented by every backend.
type Store interface {
	// Get reads the record at path and its direct children.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set replaces the record at path.
	Set(ctx context.Context, path string, fields Fields) error
	// Update merges fields into the record at path, creating it if needed.
	Update(ctx context.Context, path string, fields Fields) error
	// Push stores fields under a new insertion-ordered key below parent and returns the key.
	Push(ctx context.Context, parent string, fields Fields) (string, error)
	// Remove deletes the node at path and all of its descendants.
	Remove(ctx context.Context, path string) error
	// Subscribe calls fn with the current snapshot of path, then again after every change
	// at, below or above path. Calls for one subscription never overlap. The returned
	// function cancels the subscription; cancelling ctx does the same.
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error)
	// Close releases backend resources and ends all subscriptions.
	Close() error
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Parent returns the parent path, or "" for a top-level node.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// ValidatePath rejects empty paths, empty segments and leading or trailing slashes.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, "/") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// ancestors returns every proper ancestor of path, outermost first.
func ancestors(path string) []string {
	var out []string
	for i, r := range path {
		if r == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// affects reports whether a change at changed is visible to a subscription on watched.
func affects(watched, changed string) bool {
	return watched == changed ||
		strings.HasPrefix(changed, watched+"/") ||
		strings.HasPrefix(watched, changed+"/")
}

// encodeFields marshals the non-nil values of fields. Nil values are returned in removed.
func encodeFields(fields Fields) (set Record, removed []string, err error) {
	set = make(Record, len(fields))
	for name, value := range fields {
		if name == "" {
			return nil, nil, fmt.Errorf("empty field name")
		}
		if value == nil {
			removed = append(removed, name)
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, nil, fmt.Errorf("encode field %s: %w", name, err)
		}
		set[name] = raw
	}
	return set, removed, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Pinger adapts a Store for health checks by reading a path nothing writes to.
type Pinger struct {
	Store Store
}

func (p Pinger) Ping(ctx context.Context) error {
	_, err := p.Store.Get(ctx, "health")
	return err
}
