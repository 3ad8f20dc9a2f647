package authorization

import (
	"github.com/gin-gonic/gin"

	"supportdesk/internal/shared/constants"
	"supportdesk/internal/shared/errors"
	"supportdesk/internal/shared/utils"
)

// Identity is the caller as described by the identity headers. Nothing here is verified;
// authentication happens in front of the service.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// FromContext returns the identity set by the identity middleware.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(constants.ContextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok && id.ID != ""
}

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromContext(c); !ok {
			utils.AbortWithError(c, errors.NewUnauthorizedError("caller identity required"))
			return
		}
		c.Next()
	}
}

func RequireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			utils.AbortWithError(c, errors.NewUnauthorizedError("caller identity required"))
			return
		}
		if !id.Role.IsAgent() {
			utils.AbortWithError(c, errors.NewForbiddenError("agent access required"))
			return
		}
		c.Next()
	}
}

// CanAccessTicket reports whether id may read or write a ticket owned by ownerID.
func CanAccessTicket(id Identity, ownerID string) bool {
	if id.Role.IsAgent() {
		return true
	}
	return id.ID != "" && id.ID == ownerID
}
