package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/pipeline"
	"go.uber.org/zap"
)

type ItemHandler struct {
	svc    *pipeline.Service
	logger *zap.Logger
}

func NewItemHandler(svc *pipeline.Service, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{svc: svc, logger: logger}
}

// createItemRequest dates are "YYYY-MM-DD" or RFC 3339.
type createItemRequest struct {
	ColumnID    uuid.UUID  `json:"column_id" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	StartDate   *string    `json:"start_date"`
	DueDate     *string    `json:"due_date"`
}

// updateItemRequest is a full replacement: omitted optional fields are
// cleared. Version is the optimistic-concurrency token from the last read.
type updateItemRequest struct {
	ID          uuid.UUID  `json:"id" binding:"required"`
	ColumnID    uuid.UUID  `json:"column_id"`
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	StartDate   *string    `json:"start_date"`
	DueDate     *string    `json:"due_date"`
	Version     *int64     `json:"version"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create handles POST /v1/items
func (h *ItemHandler) Create(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		respondError(c, h.logger, err, "failed to create item")
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(c, h.logger, err, "failed to create item")
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), middleware.GetCaller(c), pipeline.CreateItemInput{
		ColumnID:    req.ColumnID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssigneeID:  req.AssigneeID,
		StartDate:   start,
		DueDate:     due,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to create item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Get handles GET /v1/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetItem(c.Request.Context(), middleware.GetCaller(c), itemID)
	if err != nil {
		respondError(c, h.logger, err, "failed to get item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// Update handles PUT /v1/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		respondError(c, h.logger, err, "failed to update item")
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(c, h.logger, err, "failed to update item")
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), middleware.GetCaller(c), itemID, pipeline.UpdateItemInput{
		ID:          req.ID,
		ColumnID:    req.ColumnID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssigneeID:  req.AssigneeID,
		StartDate:   start,
		DueDate:     due,
		Version:     req.Version,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to update item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateStatus handles PUT /v1/items/:id/status
func (h *ItemHandler) UpdateStatus(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	item, err := h.svc.UpdateItemStatus(c.Request.Context(), middleware.GetCaller(c), itemID, req.Status)
	if err != nil {
		respondError(c, h.logger, err, "failed to update status")
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /v1/items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), middleware.GetCaller(c), itemID); err != nil {
		respondError(c, h.logger, err, "failed to delete item")
		return
	}
	c.Status(http.StatusNoContent)
}

// Activity handles GET /v1/items/:id/activity
func (h *ItemHandler) Activity(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.ItemActivity(c.Request.Context(), middleware.GetCaller(c), itemID)
	if err != nil {
		respondError(c, h.logger, err, "failed to list activity")
		return
	}
	c.JSON(http.StatusOK, entries)
}
