package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
)

// Context keys for storing claims in gin.Context.
const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyRole   = "global_role"
)

// AccessTokenParam carries the JWT for websocket and SSE requests, where
// browsers cannot set an Authorization header.
const AccessTokenParam = "access_token"

// AuthMiddleware validates the JWT and stores the caller's claims.
//
// The token comes from "Authorization: Bearer <token>" or, failing that, the
// access_token query parameter. Either way an invalid token aborts with 401
// and the handler never runs.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, errMsg := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  errMsg,
				"reason": "unauthenticated",
			})
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "invalid or expired token",
				"reason": "unauthenticated",
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query(AccessTokenParam); q != "" {
			return q, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", "invalid authorization format, expected: Bearer <token>"
	}
	return parts[1], ""
}

// Helpers return zero values when the key is missing, which any lookup
// downstream treats as an unknown user.

func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetEmail(c *gin.Context) string {
	val, exists := c.Get(ContextKeyEmail)
	if !exists {
		return ""
	}
	email, ok := val.(string)
	if !ok {
		return ""
	}
	return email
}

func GetCaller(c *gin.Context) auth.Caller {
	caller := auth.Caller{UserID: GetUserID(c), Email: GetEmail(c)}
	if val, exists := c.Get(ContextKeyRole); exists {
		if role, ok := val.(models.GlobalRole); ok {
			caller.Role = role
		}
	}
	return caller
}
