package utils

import (
	"strings"

	"github.com/gin-gonic/gin"

	"supportdesk/internal/shared/errors"
)

// ParseIDParam reads a required path parameter. entityName is used in the error message.
func ParseIDParam(c *gin.Context, paramName, entityName string) (string, error) {
	value := strings.TrimSpace(c.Param(paramName))
	if value == "" {
		return "", errors.NewValidationError(entityName + " ID is required")
	}
	return value, nil
}
