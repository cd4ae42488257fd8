package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/apperr"
	"go.uber.org/zap"
)

// respondError writes err as {"error", "reason"}. Service outcomes keep their
// message; anything else is logged and hidden behind fallback.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.Kind.HTTPStatus(), gin.H{
			"error":  appErr.Message,
			"reason": appErr.Reason,
		})
		return
	}

	logger.Error(fallback,
		zap.Error(err),
		zap.String("path", c.FullPath()),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  message,
		"reason": apperr.ReasonInvalidInput,
	})
}

// pathID parses a uuid route parameter, writing 400 when it is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp. Empty
// clears the field.
func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.BadRequest(apperr.ReasonInvalidInput, "dates must be YYYY-MM-DD or RFC 3339")
}
