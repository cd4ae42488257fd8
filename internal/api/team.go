package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/teams"
	"go.uber.org/zap"
)

type TeamHandler struct {
	svc    *teams.Service
	logger *zap.Logger
}

func NewTeamHandler(svc *teams.Service, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{svc: svc, logger: logger}
}

type createTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	team, err := h.svc.CreateTeam(c.Request.Context(), middleware.GetCaller(c), req.Name)
	if err != nil {
		respondError(c, h.logger, err, "failed to create team")
		return
	}
	c.JSON(http.StatusCreated, team)
}

// List handles GET /v1/teams
func (h *TeamHandler) List(c *gin.Context) {
	list, err := h.svc.ListTeams(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to list teams")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Members handles GET /v1/teams/:id/members
func (h *TeamHandler) Members(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := h.svc.Members(c.Request.Context(), middleware.GetCaller(c), teamID)
	if err != nil {
		respondError(c, h.logger, err, "failed to list team members")
		return
	}
	c.JSON(http.StatusOK, members)
}
