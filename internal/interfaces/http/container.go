package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"supportdesk/internal/application/notification"
	"supportdesk/internal/application/ticket/conversation"
	"supportdesk/internal/application/ticket/ticketlist"
	"supportdesk/internal/application/ticket/usecases"
	"supportdesk/internal/infrastructure/config"
	notificationInfra "supportdesk/internal/infrastructure/notification"
	"supportdesk/internal/infrastructure/repository"
	"supportdesk/internal/infrastructure/store"
	"supportdesk/internal/interfaces/http/handlers"
	tickethandlers "supportdesk/internal/interfaces/http/handlers/ticket"
	"supportdesk/internal/interfaces/http/middleware"
	"supportdesk/internal/shared/logger"
)

// Container holds the store, the use cases, the live components and the handlers. It
// wires everything together and tears it down in Shutdown.
type Container struct {
	engine *gin.Engine
	cfg    *config.Config
	log    logger.Interface

	store      store.Store
	closeStore func() error

	dispatcher  *notification.Dispatcher
	ticketList  *ticketlist.Controller
	rateLimiter *middleware.RateLimiter

	ticketHandler *tickethandlers.TicketHandler
	streamHandler *tickethandlers.StreamHandler
	healthHandler *handlers.HealthHandler
}

// NewContainer opens the configured store and builds every component on top of it.
func NewContainer(ctx context.Context, cfg *config.Config, autoMigrate bool, log logger.Interface) (*Container, error) {
	s, closeStore, err := store.Open(ctx, &cfg.Store, autoMigrate, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	transport, err := notificationInfra.NewTransport(&cfg.Notification, log)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to create notification transport: %w", err)
	}

	c := &Container{
		engine:     gin.New(),
		cfg:        cfg,
		log:        log,
		store:      s,
		closeStore: closeStore,
		dispatcher: notification.NewDispatcher(transport, cfg.Notification.Timeout, log.With("component", "notification")),
	}

	ticketRepo := repository.NewTicketRepository(s, log)
	messageRepo := repository.NewMessageRepository(s, log)

	markUnreadUC := usecases.NewMarkUnreadUseCase(ticketRepo, log)
	listMessagesUC := usecases.NewListMessagesUseCase(messageRepo, log)

	c.ticketList = ticketlist.NewController(ticketRepo, log.With("component", "ticketlist"))

	c.ticketHandler = tickethandlers.NewTicketHandler(
		usecases.NewCreateTicketUseCase(ticketRepo, log),
		usecases.NewGetTicketUseCase(ticketRepo, log),
		usecases.NewListTicketsUseCase(ticketRepo, log),
		usecases.NewSetStatusUseCase(ticketRepo, log),
		usecases.NewClearUnreadUseCase(ticketRepo, log),
		usecases.NewRecomputeUnreadUseCase(ticketRepo, messageRepo, log),
		usecases.NewAppendMessageUseCase(ticketRepo, messageRepo, markUnreadUC, c.dispatcher, log),
		listMessagesUC,
		c.ticketList,
		log,
	)

	pollInterval := cfg.Sync.PollInterval
	syncLog := log.With("component", "conversation")
	c.streamHandler = tickethandlers.NewStreamHandler(
		c.ticketList,
		func() (tickethandlers.ConversationSession, error) {
			return conversation.NewSynchronizer(listMessagesUC, pollInterval, syncLog)
		},
		c.ticketHandler,
		log,
	)

	c.healthHandler = handlers.NewHealthHandler(store.Pinger{Store: s}, cfg.Store.Driver, log)

	if rs, ok := s.(*store.RedisStore); ok && cfg.Server.RateLimit > 0 {
		c.rateLimiter = middleware.NewRateLimiter(rs.Client(), cfg.Store.Redis.KeyPrefix, cfg.Server.RateLimit, time.Minute, log)
	}

	return c, nil
}

// Start begins watching the ticket collection.
func (c *Container) Start(ctx context.Context) error {
	return c.ticketList.Start(ctx)
}

func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// CloseStreams ends open event streams so the HTTP server can drain.
func (c *Container) CloseStreams() {
	c.streamHandler.Close()
}

// Shutdown stops the live list, waits for pending notifications and closes the store.
func (c *Container) Shutdown(ctx context.Context) error {
	c.ticketList.Stop()

	var errs []error
	if err := c.dispatcher.Wait(ctx); err != nil {
		c.log.Warnw("pending notifications abandoned at shutdown", "error", err)
		errs = append(errs, err)
	}
	if err := c.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}
