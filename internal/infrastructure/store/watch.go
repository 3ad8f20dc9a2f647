package store

import (
	"context"
	"sync"

	"supportdesk/internal/shared/goroutine"
	"supportdesk/internal/shared/logger"
)

// watchers fans change notifications out to subscriptions. Each subscription owns a
// goroutine that reloads the watched path and calls its callback; notifications that
// arrive while a reload is pending are coalesced.
type watchers struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
	log    logger.Interface
}

type subscription struct {
	path  string
	fn    func(Snapshot)
	dirty chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newWatchers(log logger.Interface) *watchers {
	return &watchers{
		subs: make(map[uint64]*subscription),
		log:  log,
	}
}

// add registers fn for path and schedules the initial delivery.
func (w *watchers) add(ctx context.Context, path string, fn func(Snapshot), load func(context.Context, string) (Snapshot, error)) (func(), error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	sub := &subscription{
		path:  path,
		fn:    fn,
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	sub.dirty <- struct{}{}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, unavailable("subscribe", context.Canceled)
	}
	id := w.nextID
	w.nextID++
	w.subs[id] = sub
	w.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			close(sub.done)
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}

	loadCtx, stopLoad := context.WithCancel(context.Background())
	goroutine.SafeGo(w.log, "store-subscription", func() {
		defer stopLoad()
		for {
			select {
			case <-sub.done:
				return
			case <-ctx.Done():
				cancel()
				return
			case <-sub.dirty:
			}

			snap, err := load(loadCtx, sub.path)
			if err != nil {
				w.log.Warnw("failed to load snapshot for subscription", "path", sub.path, "error", err)
				continue
			}

			select {
			case <-sub.done:
				return
			default:
			}
			sub.fn(snap)
		}
	})

	return cancel, nil
}

// notify marks every subscription affected by a change at path.
func (w *watchers) notify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subs {
		if !affects(sub.path, path) {
			continue
		}
		select {
		case sub.dirty <- struct{}{}:
		default:
		}
	}
}

// count returns the number of live subscriptions.
func (w *watchers) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// closeAll ends every subscription and rejects new ones.
func (w *watchers) closeAll() {
	w.mu.Lock()
	subs := make([]*subscription, 0, len(w.subs))
	for _, sub := range w.subs {
		subs = append(subs, sub)
	}
	w.subs = make(map[uint64]*subscription)
	w.closed = true
	w.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
}
