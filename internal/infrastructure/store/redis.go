package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"supportdesk/internal/shared/goroutine"
	"supportdesk/internal/shared/id"
	"supportdesk/internal/shared/logger"
)

// RedisStore keeps each record in a hash and each node's children in a sorted set
// (all scores 0, so members come back in lexicographic key order). Writes run inside
// MULTI/EXEC and are announced on a pub/sub channel so that subscribers on other
// instances see them too.
//
// Key layout, with prefix "supportdesk":
//
//	supportdesk:rec:tickets/abc     hash   record fields
//	supportdesk:idx:tickets         zset   child keys of tickets
//	supportdesk:changes             channel  change events
type RedisStore struct {
	client     *redis.Client
	prefix     string
	instanceID string
	watchers   *watchers
	logger     logger.Interface

	listenOnce sync.Once
	stopListen context.CancelFunc
	listenDone chan struct{}
}

type changeEvent struct {
	Path       string `json:"path"`
	InstanceID string `json:"instance_id"`
}

func NewRedisStore(client *redis.Client, prefix string, log logger.Interface) *RedisStore {
	if prefix == "" {
		prefix = "supportdesk"
	}
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		instanceID: uuid.NewString(),
		watchers:   newWatchers(log),
		logger:     log,
		listenDone: make(chan struct{}),
	}
}

// Client exposes the connection for components that share it, such as the rate limiter.
func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) recordKey(path string) string { return s.prefix + ":rec:" + path }
func (s *RedisStore) indexKey(path string) string  { return s.prefix + ":idx:" + path }
func (s *RedisStore) channel() string              { return s.prefix + ":changes" }

func (s *RedisStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ValidatePath(path); err != nil {
		return Snapshot{}, err
	}

	var recCmd *redis.MapStringStringCmd
	var idxCmd *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		recCmd = p.HGetAll(ctx, s.recordKey(path))
		idxCmd = p.ZRange(ctx, s.indexKey(path), 0, -1)
		return nil
	})
	if err != nil {
		return Snapshot{}, unavailable("get", err)
	}

	snap := Snapshot{Path: path, Record: toRecord(recCmd.Val())}
	childKeys := idxCmd.Val()
	if len(childKeys) == 0 {
		return snap, nil
	}

	childCmds := make([]*redis.MapStringStringCmd, len(childKeys))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range childKeys {
			childCmds[i] = p.HGetAll(ctx, s.recordKey(Join(path, key)))
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, unavailable("get children", err)
	}

	snap.Children = make([]Child, len(childKeys))
	for i, key := range childKeys {
		snap.Children[i] = Child{Key: key, Record: toRecord(childCmds[i].Val())}
	}
	return snap, nil
}

func (s *RedisStore) Set(ctx context.Context, path string, fields Fields) error {
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

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.recordKey(path))
		p.HSet(ctx, s.recordKey(path), toHashValues(record)...)
		s.link(ctx, p, path)
		return nil
	})
	if err != nil {
		return unavailable("set", err)
	}

	s.announce(ctx, path)
	return nil
}

func (s *RedisStore) Update(ctx context.Context, path string, fields Fields) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	set, removed, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if len(set) == 0 && len(removed) == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(set) > 0 {
			p.HSet(ctx, s.recordKey(path), toHashValues(set)...)
			s.link(ctx, p, path)
		}
		if len(removed) > 0 {
			p.HDel(ctx, s.recordKey(path), removed...)
		}
		return nil
	})
	if err != nil {
		return unavailable("update", err)
	}

	s.announce(ctx, path)
	return nil
}

// nextPushKeyScript hands out push key parts from the server so that every instance
// sharing a prefix draws from one sequence.
// KEYS[1] = sequence counter, KEYS[2] = last issued millisecond
// Returns {ms, seq}; ms never goes backwards.
var nextPushKeyScript = redis.NewScript(`
local now = redis.call('TIME')
local ms = tonumber(now[1]) * 1000 + math.floor(tonumber(now[2]) / 1000)
local last = tonumber(redis.call('GET', KEYS[2]) or '0')
if ms < last then
    ms = last
end
redis.call('SET', KEYS[2], ms)
local seq = redis.call('INCR', KEYS[1])
return {ms, seq}
`)

func (s *RedisStore) nextPushKey(ctx context.Context) (string, error) {
	parts, err := nextPushKeyScript.Run(ctx, s.client, []string{s.prefix + ":seq", s.prefix + ":seq:ms"}).Int64Slice()
	if err != nil {
		return "", err
	}
	if len(parts) != 2 {
		return "", fmt.Errorf("unexpected push key reply: %v", parts)
	}
	return id.SequencedPushKey(parts[0], uint64(parts[1])), nil
}

func (s *RedisStore) Push(ctx context.Context, parent string, fields Fields) (string, error) {
	if err := ValidatePath(parent); err != nil {
		return "", err
	}
	key, err := s.nextPushKey(ctx)
	if err != nil {
		return "", unavailable("push", err)
	}
	if err := s.Set(ctx, Join(parent, key), fields); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	// collect the subtree breadth-first
	nodes := []string{path}
	for i := 0; i < len(nodes); i++ {
		keys, err := s.client.ZRange(ctx, s.indexKey(nodes[i]), 0, -1).Result()
		if err != nil {
			return unavailable("remove", err)
		}
		for _, key := range keys {
			nodes = append(nodes, Join(nodes[i], key))
		}
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, node := range nodes {
			p.Del(ctx, s.recordKey(node), s.indexKey(node))
		}
		if parent := Parent(path); parent != "" {
			p.ZRem(ctx, s.indexKey(parent), Base(path))
		}
		return nil
	})
	if err != nil {
		return unavailable("remove", err)
	}

	s.announce(ctx, path)
	return nil
}

// Subscribe starts the change listener on first use.
func (s *RedisStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	s.listenOnce.Do(s.startListener)
	return s.watchers.add(ctx, path, fn, s.Get)
}

func (s *RedisStore) Close() error {
	s.watchers.closeAll()
	// no listener may start after Close
	s.listenOnce.Do(func() {})
	if s.stopListen != nil {
		s.stopListen()
		<-s.listenDone
	}
	return nil
}

func (s *RedisStore) link(ctx context.Context, p redis.Pipeliner, path string) {
	chain := append(ancestors(path), path)
	for i := 1; i < len(chain); i++ {
		p.ZAdd(ctx, s.indexKey(chain[i-1]), redis.Z{Score: 0, Member: Base(chain[i])})
	}
}

// announce notifies local subscribers directly and remote ones through pub/sub.
// A failed publish is logged only: the write itself already succeeded.
func (s *RedisStore) announce(ctx context.Context, path string) {
	s.watchers.notify(path)

	data, err := json.Marshal(changeEvent{Path: path, InstanceID: s.instanceID})
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel(), data).Err(); err != nil {
		s.logger.Warnw("failed to publish store change", "path", path, "error", err)
	}
}

func (s *RedisStore) startListener() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopListen = cancel
	goroutine.SafeGo(s.logger, "redis-store-listener", func() {
		defer close(s.listenDone)
		s.listenWithReconnect(ctx)
	})
}

func (s *RedisStore) listenWithReconnect(ctx context.Context) {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warnw("store change subscription disconnected, reconnecting",
			"channel", s.channel(),
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *RedisStore) listen(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel())
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", s.channel(), err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event changeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warnw("failed to unmarshal store change", "payload", msg.Payload, "error", err)
				continue
			}
			if event.InstanceID == s.instanceID {
				continue
			}
			s.watchers.notify(event.Path)
		}
	}
}

func toRecord(hash map[string]string) Record {
	if len(hash) == 0 {
		return nil
	}
	record := make(Record, len(hash))
	for name, value := range hash {
		record[name] = json.RawMessage(value)
	}
	return record
}

func toHashValues(record Record) []any {
	values := make([]any, 0, len(record)*2)
	for name, value := range record {
		values = append(values, name, string(value))
	}
	return values
}
