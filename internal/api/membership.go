package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/membership"
	"github.com/lalith-99/boardsync/internal/middleware"
	"go.uber.org/zap"
)

// MembershipHandler manages a board's member list.
type MembershipHandler struct {
	svc    *membership.Service
	logger *zap.Logger
}

func NewMembershipHandler(svc *membership.Service, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{svc: svc, logger: logger}
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListMembers handles GET /v1/boards/:id/members
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := h.svc.ListMembers(c.Request.Context(), middleware.GetCaller(c), boardID)
	if err != nil {
		respondError(c, h.logger, err, "failed to list members")
		return
	}
	c.JSON(http.StatusOK, members)
}

// ChangeRole handles PUT /v1/boards/:id/members/:userId
func (h *MembershipHandler) ChangeRole(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	member, err := h.svc.ChangeRole(c.Request.Context(), middleware.GetCaller(c), boardID, userID, req.Role)
	if err != nil {
		respondError(c, h.logger, err, "failed to change role")
		return
	}
	c.JSON(http.StatusOK, member)
}

// Remove handles DELETE /v1/boards/:id/members/:userId. Members may remove
// themselves to leave a board.
func (h *MembershipHandler) Remove(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), middleware.GetCaller(c), boardID, userID); err != nil {
		respondError(c, h.logger, err, "failed to remove member")
		return
	}
	c.Status(http.StatusNoContent)
}
