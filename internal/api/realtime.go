package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/boardsync/internal/middleware"
	"github.com/lalith-99/boardsync/internal/notify"
	"github.com/lalith-99/boardsync/internal/realtime"
	"go.uber.org/zap"
)

// RealtimeHandler serves the two long-lived connections: the websocket for
// group broadcasts and the SSE stream for per-user notifications.
type RealtimeHandler struct {
	hub        *realtime.Hub
	authorizer realtime.JoinAuthorizer
	upgrader   *websocket.Upgrader
	sendBuffer int
	dispatcher *notify.Dispatcher
	heartbeat  time.Duration
	logger     *zap.Logger
}

func NewRealtimeHandler(
	hub *realtime.Hub,
	authorizer realtime.JoinAuthorizer,
	upgrader *websocket.Upgrader,
	sendBuffer int,
	dispatcher *notify.Dispatcher,
	heartbeat time.Duration,
	logger *zap.Logger,
) *RealtimeHandler {
	return &RealtimeHandler{
		hub:        hub,
		authorizer: authorizer,
		upgrader:   upgrader,
		sendBuffer: sendBuffer,
		dispatcher: dispatcher,
		heartbeat:  heartbeat,
		logger:     logger,
	}
}

// ServeWS handles GET /v1/ws. The client joins groups with
// {"action":"join","group":"board:<id>"} frames once connected.
func (h *RealtimeHandler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewClient(h.hub, conn, middleware.GetCaller(c), h.authorizer, h.sendBuffer, h.logger)
	client.Run(c.Request.Context())
}

// ServeSSE handles GET /v1/sse/invitations
func (h *RealtimeHandler) ServeSSE(c *gin.Context) {
	notify.ServeSSE(c, h.dispatcher, middleware.GetUserID(c), h.heartbeat)
}
