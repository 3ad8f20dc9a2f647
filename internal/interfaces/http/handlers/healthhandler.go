package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"supportdesk/internal/shared/logger"
	"supportdesk/internal/shared/version"
)

const healthCheckTimeout = 2 * time.Second

// StorePinger checks that the store answers.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  StorePinger
	driver string
	logger logger.Interface
}

func NewHealthHandler(store StorePinger, driver string, log logger.Interface) *HealthHandler {
	return &HealthHandler{store: store, driver: driver, logger: log}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warnw("health check failed", "driver", h.driver, "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": "supportdesk",
		"store":   h.driver,
		"version": version.String(),
	})
}
