package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
)

type UserHandler struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, logger: logger}
}

// GetMe handles GET /v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.repo.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to get user")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "reason": apperr.ReasonUserNotFound})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Ban handles POST /v1/admin/users/:id/ban
func (h *UserHandler) Ban(c *gin.Context) {
	h.setBanned(c, true)
}

// Unban handles POST /v1/admin/users/:id/unban
func (h *UserHandler) Unban(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *UserHandler) setBanned(c *gin.Context, banned bool) {
	caller := middleware.GetCaller(c)
	if !caller.IsSiteAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "site admin only", "reason": apperr.ReasonInsufficientRole})
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if userID == caller.UserID {
		badRequest(c, "you cannot ban yourself")
		return
	}

	target, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "failed to update user")
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "reason": apperr.ReasonUserNotFound})
		return
	}
	if err := h.repo.SetBanned(c.Request.Context(), userID, banned); err != nil {
		respondError(c, h.logger, err, "failed to update user")
		return
	}

	h.logger.Info("user ban state changed",
		zap.String("user_id", userID.String()),
		zap.Bool("banned", banned),
		zap.String("by", caller.UserID.String()),
	)
	c.Status(http.StatusNoContent)
}
