package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

// BanMiddleware rejects banned users with 403. It runs after AuthMiddleware
// and reads the user row on every request so a ban takes effect before the
// caller's token expires.
func BanMiddleware(users repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			logger.Error("failed to load user for ban check", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "user no longer exists",
				"reason": "unauthenticated",
			})
			return
		}
		if user.Banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":  "account is banned",
				"reason": "banned",
			})
			return
		}

		c.Next()
	}
}
