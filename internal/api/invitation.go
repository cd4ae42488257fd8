package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/invitations"
	"github.com/lalith-99/boardsync/internal/middleware"
	"go.uber.org/zap"
)

type InvitationHandler struct {
	svc    *invitations.Service
	logger *zap.Logger
}

func NewInvitationHandler(svc *invitations.Service, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{svc: svc, logger: logger}
}

type boardInviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type teamInviteRequest struct {
	Email string `json:"email" binding:"required"`
}

// InviteToBoard handles POST /v1/boards/:id/invitations
func (h *InvitationHandler) InviteToBoard(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req boardInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	inv, err := h.svc.InviteToBoard(c.Request.Context(), middleware.GetCaller(c), boardID, req.Email, req.Role)
	if err != nil {
		respondError(c, h.logger, err, "failed to create invitation")
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// ListBoard handles GET /v1/invitations/board
func (h *InvitationHandler) ListBoard(c *gin.Context) {
	invites, err := h.svc.ListBoardInvites(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to list invitations")
		return
	}
	c.JSON(http.StatusOK, invites)
}

// AcceptBoard handles POST /v1/invitations/board/:token/accept
func (h *InvitationHandler) AcceptBoard(c *gin.Context) {
	member, err := h.svc.AcceptBoard(c.Request.Context(), middleware.GetCaller(c), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err, "failed to accept invitation")
		return
	}
	c.JSON(http.StatusOK, member)
}

// RejectBoard handles POST /v1/invitations/board/:token/reject
func (h *InvitationHandler) RejectBoard(c *gin.Context) {
	if err := h.svc.RejectBoard(c.Request.Context(), middleware.GetCaller(c), c.Param("token")); err != nil {
		respondError(c, h.logger, err, "failed to reject invitation")
		return
	}
	c.Status(http.StatusNoContent)
}

// InviteToTeam handles POST /v1/teams/:id/invitations
func (h *InvitationHandler) InviteToTeam(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req teamInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	inv, err := h.svc.InviteToTeam(c.Request.Context(), middleware.GetCaller(c), teamID, req.Email)
	if err != nil {
		respondError(c, h.logger, err, "failed to create invitation")
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// ListTeam handles GET /v1/invitations/team
func (h *InvitationHandler) ListTeam(c *gin.Context) {
	invites, err := h.svc.ListTeamInvites(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to list invitations")
		return
	}
	c.JSON(http.StatusOK, invites)
}

// AcceptTeam handles POST /v1/invitations/team/:token/accept
func (h *InvitationHandler) AcceptTeam(c *gin.Context) {
	member, err := h.svc.AcceptTeam(c.Request.Context(), middleware.GetCaller(c), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err, "failed to accept invitation")
		return
	}
	c.JSON(http.StatusOK, member)
}

// RejectTeam handles POST /v1/invitations/team/:token/reject
func (h *InvitationHandler) RejectTeam(c *gin.Context) {
	if err := h.svc.RejectTeam(c.Request.Context(), middleware.GetCaller(c), c.Param("token")); err != nil {
		respondError(c, h.logger, err, "failed to reject invitation")
		return
	}
	c.Status(http.StatusNoContent)
}
