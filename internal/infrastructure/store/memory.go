package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"supportdesk/internal/shared/id"
	"supportdesk/internal/shared/logger"
)

// MemoryStore keeps everything in process memory. It backs tests and single-process
// development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	children map[string]map[string]struct{}
	keys     *id.PushKeyGenerator
	watchers *watchers
}

func NewMemoryStore(log logger.Interface) *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		children: make(map[string]map[string]struct{}),
		keys:     id.NewPushKeyGenerator(),
		watchers: newWatchers(log),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ValidatePath(path); err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, unavailable("get", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Path: path, Record: maps.Clone(s.records[path])}
	keys := slices.Sorted(maps.Keys(s.children[path]))
	for _, key := range keys {
		snap.Children = append(snap.Children, Child{
			Key:    key,
			Record: maps.Clone(s.records[Join(path, key)]),
		})
	}
	return snap, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, fields Fields) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	record, _, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if len(record) == 0 {
		return ErrEmptyRecord
	}
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}

	s.mu.Lock()
	s.records[path] = record
	s.link(path)
	s.mu.Unlock()

	s.watchers.notify(path)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields Fields) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	set, removed, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("update", err)
	}

	s.mu.Lock()
	record := s.records[path]
	if record == nil {
		record = make(Record, len(set))
	}
	for name, value := range set {
		record[name] = value
	}
	for _, name := range removed {
		delete(record, name)
	}
	if len(record) > 0 {
		s.records[path] = record
		s.link(path)
	} else {
		delete(s.records, path)
	}
	s.mu.Unlock()

	s.watchers.notify(path)
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, parent string, fields Fields) (string, error) {
	if err := ValidatePath(parent); err != nil {
		return "", err
	}
	key, err := s.keys.Next()
	if err != nil {
		return "", unavailable("push", err)
	}
	if err := s.Set(ctx, Join(parent, key), fields); err != nil {
		return "", err
	}
	return key, nil
}

func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("remove", err)
	}

	s.mu.Lock()
	s.removeTree(path)
	if parent := Parent(path); parent != "" {
		delete(s.children[parent], Base(path))
	}
	s.mu.Unlock()

	s.watchers.notify(path)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return s.watchers.add(ctx, path, fn, s.Get)
}

func (s *MemoryStore) Close() error {
	s.watchers.closeAll()
	return nil
}

// link registers path in the child index of each of its ancestors. Caller holds mu.
func (s *MemoryStore) link(path string) {
	chain := append(ancestors(path), path)
	for i := 1; i < len(chain); i++ {
		parent := chain[i-1]
		if s.children[parent] == nil {
			s.children[parent] = make(map[string]struct{})
		}
		s.children[parent][Base(chain[i])] = struct{}{}
	}
}

// removeTree deletes path and its descendants. Caller holds mu.
func (s *MemoryStore) removeTree(path string) {
	for key := range s.children[path] {
		s.removeTree(Join(path, key))
	}
	delete(s.children, path)
	delete(s.records, path)
}
