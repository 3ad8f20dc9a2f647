// Package conversation keeps open ticket conversations current by polling the message log.
//
// Each open ticket gets one gocron duration job. Every run lists the ticket's messages,
// diffs them by id against what the handle has already surfaced and passes only the new
// ones to the callback. A failed poll is logged and retried on the next run.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"supportdesk/internal/application/ticket/dto"
	"supportdesk/internal/application/ticket/usecases"
	"supportdesk/internal/shared/biztime"
	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/utils"
)

const DefaultPollInterval = 5 * time.Second

// OnNewMessages receives messages not yet seen by the handle, oldest first.
type OnNewMessages func(messages []*dto.MessageDTO)

// Handle is one open conversation.
type Handle struct {
	ticketID string
	onNew    OnNewMessages

	jobID  uuid.UUID
	cancel context.CancelFunc
	closed atomic.Bool

	// pollMu serializes polls; seen is only touched under it.
	pollMu   sync.Mutex
	seen     map[string]struct{}
	lastSync atomic.Int64
	polls    atomic.Int64
}

func (h *Handle) TicketID() string { return h.ticketID }

// LastSync returns the time of the last successful poll, zero if none succeeded.
func (h *Handle) LastSync() time.Time {
	ms := h.lastSync.Load()
	if ms == 0 {
		return time.Time{}
	}
	return biztime.FromUnixMilli(ms)
}

// Polls returns how many polls have run for this handle.
func (h *Handle) Polls() int64 {
	return h.polls.Load()
}

// Synchronizer runs at most one poll job per ticket.
type Synchronizer struct {
	listMessages usecases.ListMessagesExecutor
	interval     time.Duration
	scheduler    gocron.Scheduler
	logger       logger.Interface

	mu   sync.Mutex
	open map[string]*Handle
}

func NewSynchronizer(
	listMessages usecases.ListMessagesExecutor,
	interval time.Duration,
	log logger.Interface,
) (*Synchronizer, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create poll scheduler: %w", err)
	}
	scheduler.Start()

	return &Synchronizer{
		listMessages: listMessages,
		interval:     interval,
		scheduler:    scheduler,
		logger:       log,
		open:         make(map[string]*Handle),
	}, nil
}

// Open starts polling ticketID. The first poll runs before Open returns. Opening a
// ticket that is already open closes the previous handle first.
func (s *Synchronizer) Open(ctx context.Context, ticketID string, onNew OnNewMessages) (*Handle, error) {
	if err := utils.ValidateID("ticket ID", ticketID); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle{
		ticketID: ticketID,
		onNew:    onNew,
		cancel:   cancel,
		seen:     make(map[string]struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.open[ticketID]; ok {
		s.closeLocked(prev)
	}
	s.open[ticketID] = h
	s.mu.Unlock()

	// The callback may call back into the synchronizer, so no lock is held here.
	s.poll(jobCtx, h)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Closed or replaced while the first poll ran.
	if h.closed.Load() {
		return h, nil
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func(ctx context.Context) {
			s.poll(ctx, h)
		}),
		gocron.WithContext(jobCtx),
		gocron.WithName("conversation-poll:"+ticketID),
		gocron.WithTags(ticketID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.closeLocked(h)
		return nil, fmt.Errorf("failed to schedule conversation poll: %w", err)
	}
	h.jobID = job.ID()

	s.logger.Debugw("conversation opened", "ticket_id", ticketID, "interval", s.interval)
	return h, nil
}

// Close stops polling for h. It is safe to call more than once.
func (s *Synchronizer) Close(h *Handle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(h)
}

// CloseAll closes every open conversation.
func (s *Synchronizer) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.open {
		s.closeLocked(h)
	}
}

// Shutdown closes every conversation and stops the scheduler.
func (s *Synchronizer) Shutdown() error {
	s.CloseAll()
	return s.scheduler.Shutdown()
}

// OpenCount returns the number of open conversations.
func (s *Synchronizer) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

func (s *Synchronizer) closeLocked(h *Handle) {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
	if h.jobID != uuid.Nil {
		if err := s.scheduler.RemoveJob(h.jobID); err != nil {
			s.logger.Warnw("failed to remove conversation poll job", "ticket_id", h.ticketID, "error", err)
		}
	}
	if s.open[h.ticketID] == h {
		delete(s.open, h.ticketID)
	}
	s.logger.Debugw("conversation closed", "ticket_id", h.ticketID)
}

func (s *Synchronizer) poll(ctx context.Context, h *Handle) {
	h.pollMu.Lock()
	defer h.pollMu.Unlock()

	if h.closed.Load() {
		return
	}
	h.polls.Add(1)

	messages, err := s.listMessages.Execute(ctx, usecases.ListMessagesQuery{TicketID: h.ticketID})
	if err != nil {
		s.logger.Warnw("conversation poll failed, retrying next tick",
			"ticket_id", h.ticketID,
			"last_sync", h.LastSync(),
			"error", err,
		)
		return
	}
	h.lastSync.Store(biztime.NowUTC().UnixMilli())

	var fresh []*dto.MessageDTO
	for _, m := range messages {
		if _, ok := h.seen[m.ID]; ok {
			continue
		}
		h.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}

	if len(fresh) == 0 || h.closed.Load() {
		return
	}
	h.onNew(fresh)
}
