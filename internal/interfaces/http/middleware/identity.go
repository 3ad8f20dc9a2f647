package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"supportdesk/internal/shared/authorization"
	"supportdesk/internal/shared/constants"
)

// Identity reads the caller from the identity headers. Agent headers win when both
// sets are present. Requests without either pass through anonymous.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if agentID := strings.TrimSpace(c.GetHeader(constants.HeaderAgentID)); agentID != "" {
			c.Set(constants.ContextKeyIdentity, authorization.Identity{
				ID:   agentID,
				Name: strings.TrimSpace(c.GetHeader(constants.HeaderAgentName)),
				Role: authorization.RoleAgent,
			})
		} else if userID := strings.TrimSpace(c.GetHeader(constants.HeaderUserID)); userID != "" {
			c.Set(constants.ContextKeyIdentity, authorization.Identity{
				ID:    userID,
				Name:  strings.TrimSpace(c.GetHeader(constants.HeaderUserName)),
				Email: strings.TrimSpace(c.GetHeader(constants.HeaderUserEmail)),
				Role:  authorization.RoleUser,
			})
		}
		c.Next()
	}
}
