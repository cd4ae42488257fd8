package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/chat"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/models"
	"go.uber.org/zap"
)

type ChatHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewChatHandler(svc *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// BoardRoom handles GET /v1/boards/:id/chat. The room is created on first
// request.
func (h *ChatHandler) BoardRoom(c *gin.Context) {
	h.room(c, models.RoomBoard)
}

// TeamRoom handles GET /v1/teams/:id/chat
func (h *ChatHandler) TeamRoom(c *gin.Context) {
	h.room(c, models.RoomTeam)
}

func (h *ChatHandler) room(c *gin.Context, roomType models.RoomType) {
	entityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	room, err := h.svc.Room(c.Request.Context(), middleware.GetCaller(c), roomType, entityID)
	if err != nil {
		respondError(c, h.logger, err, "failed to open chat room")
		return
	}
	c.JSON(http.StatusOK, room)
}

// Send handles POST /v1/chat/:roomId/messages
func (h *ChatHandler) Send(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.svc.Send(c.Request.Context(), middleware.GetCaller(c), roomID, req.Text)
	if err != nil {
		respondError(c, h.logger, err, "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Messages handles GET /v1/chat/:roomId/messages?limit=50
func (h *ChatHandler) Messages(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	limit := chat.DefaultHistory
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			badRequest(c, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	msgs, err := h.svc.Messages(c.Request.Context(), middleware.GetCaller(c), roomID, limit)
	if err != nil {
		respondError(c, h.logger, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}
