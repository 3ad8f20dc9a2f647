package http

import (
	"github.com/gin-gonic/gin"

	"supportdesk/internal/interfaces/http/middleware"
	"supportdesk/internal/interfaces/http/routes"
	"supportdesk/internal/shared/constants"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/utils"
)

// SetupRoutes configures all HTTP routes
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.Logger(c.log))
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))
	c.engine.Use(middleware.Identity())

	c.engine.GET("/health", c.healthHandler.HealthCheck)

	api := c.engine.Group(constants.APIVersionPrefix)
	routes.SetupTicketRoutes(api, &routes.TicketRouteConfig{
		TicketHandler: c.ticketHandler,
		StreamHandler: c.streamHandler,
		RateLimiter:   c.rateLimiter,
	})

	c.engine.NoRoute(func(ctx *gin.Context) {
		utils.ErrorResponseWithError(ctx, errors.NewNotFoundError("route not found", ctx.Request.URL.Path))
	})
}
