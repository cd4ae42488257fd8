package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/boards"
	"github.com/lalith-99/boardsync/internal/middleware"
	"go.uber.org/zap"
)

type BoardHandler struct {
	svc    *boards.Service
	logger *zap.Logger
}

func NewBoardHandler(svc *boards.Service, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{svc: svc, logger: logger}
}

type boardRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/boards
func (h *BoardHandler) Create(c *gin.Context) {
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	board, err := h.svc.CreateBoard(c.Request.Context(), middleware.GetCaller(c), req.Name)
	if err != nil {
		respondError(c, h.logger, err, "failed to create board")
		return
	}
	c.JSON(http.StatusCreated, board)
}

// List handles GET /v1/boards
func (h *BoardHandler) List(c *gin.Context) {
	list, err := h.svc.ListBoards(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to list boards")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/boards/:id
func (h *BoardHandler) Get(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.GetBoard(c.Request.Context(), middleware.GetCaller(c), boardID)
	if err != nil {
		respondError(c, h.logger, err, "failed to get board")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Rename handles PUT /v1/boards/:id
func (h *BoardHandler) Rename(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	board, err := h.svc.RenameBoard(c.Request.Context(), middleware.GetCaller(c), boardID, req.Name)
	if err != nil {
		respondError(c, h.logger, err, "failed to rename board")
		return
	}
	c.JSON(http.StatusOK, board)
}

// Delete handles DELETE /v1/boards/:id
func (h *BoardHandler) Delete(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteBoard(c.Request.Context(), middleware.GetCaller(c), boardID); err != nil {
		respondError(c, h.logger, err, "failed to delete board")
		return
	}
	c.Status(http.StatusNoContent)
}
