package routes

import (
	"github.com/gin-gonic/gin"

	tickethandlers "supportdesk/internal/interfaces/http/handlers/ticket"
	"supportdesk/internal/interfaces/http/middleware"
	"supportdesk/internal/shared/authorization"
)

type TicketRouteConfig struct {
	TicketHandler *tickethandlers.TicketHandler
	StreamHandler *tickethandlers.StreamHandler
	// RateLimiter guards message and ticket creation. Nil disables it.
	RateLimiter *middleware.RateLimiter
}

func SetupTicketRoutes(api *gin.RouterGroup, config *TicketRouteConfig) {
	writeLimit := func(c *gin.Context) { c.Next() }
	if config.RateLimiter != nil {
		writeLimit = config.RateLimiter.Limit()
	}

	tickets := api.Group("/tickets")
	tickets.Use(authorization.RequireIdentity())
	{
		// Specific paths before /:id

		tickets.POST("",
			writeLimit,
			config.TicketHandler.CreateTicket)
		tickets.GET("",
			config.TicketHandler.ListTickets)
		tickets.GET("/stream",
			authorization.RequireAgent(),
			config.StreamHandler.StreamTickets)
		tickets.GET("/resolve",
			authorization.RequireAgent(),
			config.TicketHandler.ResolveDeepLink)

		tickets.POST("/:id/open",
			authorization.RequireAgent(),
			config.TicketHandler.OpenTicket)
		tickets.PATCH("/:id/status",
			authorization.RequireAgent(),
			config.TicketHandler.UpdateStatus)
		tickets.POST("/:id/unread/recompute",
			authorization.RequireAgent(),
			config.TicketHandler.RecomputeUnread)

		tickets.GET("/:id/messages/stream",
			config.StreamHandler.StreamMessages)
		tickets.GET("/:id/messages",
			config.TicketHandler.ListMessages)
		tickets.POST("/:id/messages",
			writeLimit,
			config.TicketHandler.AppendMessage)

		tickets.GET("/:id",
			config.TicketHandler.GetTicket)
	}
}
