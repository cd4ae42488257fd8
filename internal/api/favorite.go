package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/favorites"
	"github.com/lalith-99/boardsync/internal/middleware"
	"go.uber.org/zap"
)

type FavoriteHandler struct {
	svc    *favorites.Service
	logger *zap.Logger
}

func NewFavoriteHandler(svc *favorites.Service, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{svc: svc, logger: logger}
}

type toggleFavoriteRequest struct {
	BoardID uuid.UUID `json:"board_id" binding:"required"`
}

// Toggle handles POST /v1/favorite-boards/toggle
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	var req toggleFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	favorite, err := h.svc.Toggle(c.Request.Context(), middleware.GetCaller(c), req.BoardID)
	if err != nil {
		respondError(c, h.logger, err, "failed to toggle favorite")
		return
	}
	c.JSON(http.StatusOK, favorites.Change{BoardID: req.BoardID, Favorite: favorite})
}

// List handles GET /v1/favorite-boards
func (h *FavoriteHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to list favorites")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/favorite-boards/:boardId
func (h *FavoriteHandler) Get(c *gin.Context) {
	boardID, ok := pathID(c, "boardId")
	if !ok {
		return
	}
	favorite, err := h.svc.IsFavorite(c.Request.Context(), middleware.GetCaller(c), boardID)
	if err != nil {
		respondError(c, h.logger, err, "failed to get favorite")
		return
	}
	c.JSON(http.StatusOK, favorites.Change{BoardID: boardID, Favorite: favorite})
}
