package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/middleware"
	"github.com/classdesk/classdesk-api/internal/models"
)

// currentClaims extracts the authenticated identity set by the JWT middleware.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
