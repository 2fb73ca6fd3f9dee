package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prisma-institute/portal-api/internal/middleware"
	"github.com/prisma-institute/portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// studentIDFromContext returns the student record ID for student sessions,
// empty otherwise.
func studentIDFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.StudentID
}
