package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/pipeline"
	"go.uber.org/zap"
)

type ColumnHandler struct {
	svc    *pipeline.Service
	logger *zap.Logger
}

func NewColumnHandler(svc *pipeline.Service, logger *zap.Logger) *ColumnHandler {
	return &ColumnHandler{svc: svc, logger: logger}
}

type columnRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/boards/:id/columns
func (h *ColumnHandler) Create(c *gin.Context) {
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	col, err := h.svc.CreateColumn(c.Request.Context(), middleware.GetCaller(c), boardID, req.Name)
	if err != nil {
		respondError(c, h.logger, err, "failed to create column")
		return
	}
	c.JSON(http.StatusCreated, col)
}

// Rename handles PUT /v1/columns/:id
func (h *ColumnHandler) Rename(c *gin.Context) {
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	col, err := h.svc.RenameColumn(c.Request.Context(), middleware.GetCaller(c), columnID, req.Name)
	if err != nil {
		respondError(c, h.logger, err, "failed to rename column")
		return
	}
	c.JSON(http.StatusOK, col)
}

// Delete handles DELETE /v1/columns/:id
func (h *ColumnHandler) Delete(c *gin.Context) {
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteColumn(c.Request.Context(), middleware.GetCaller(c), columnID); err != nil {
		respondError(c, h.logger, err, "failed to delete column")
		return
	}
	c.Status(http.StatusNoContent)
}

// Items handles GET /v1/columns/:id/items
func (h *ColumnHandler) Items(c *gin.Context) {
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListItems(c.Request.Context(), middleware.GetCaller(c), columnID)
	if err != nil {
		respondError(c, h.logger, err, "failed to list items")
		return
	}
	c.JSON(http.StatusOK, items)
}
