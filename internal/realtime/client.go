package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

const (
	ActionJoin  = "join"
	ActionLeave = "leave"

	EventAck   = "ack"
	EventError = "error"
)

// Frame is what clients send: {"action":"join","group":"board:<id>"}.
type Frame struct {
	Action string   `json:"action"`
	Group  GroupKey `json:"group"`
}

// Client is one websocket connection. readPump owns inbound frames and
// writePump is the only writer on conn.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	caller     auth.Caller
	userID     uuid.UUID
	authorizer JoinAuthorizer
	logger     *zap.Logger

	// groups is guarded by hub.mu.
	groups map[GroupKey]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, caller auth.Caller, authorizer JoinAuthorizer, buffer int, logger *zap.Logger) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, buffer),
		caller:     caller,
		userID:     caller.UserID,
		authorizer: authorizer,
		logger:     logger.With(zap.String("user_id", caller.UserID.String())),
		groups:     make(map[GroupKey]struct{}),
	}
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Run registers the client and blocks until the connection closes.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.reply(EventError, "", fields{"reason": apperr.ReasonInvalidInput, "message": "malformed frame"})
			continue
		}
		c.handle(ctx, frame)
	}
}

// fields is the shape of ack and error payloads.
type fields = map[string]any

func (c *Client) handle(ctx context.Context, frame Frame) {
	switch frame.Action {
	case ActionJoin:
		if err := c.authorizer.AuthorizeJoin(ctx, c.caller, frame.Group); err != nil {
			reason := apperr.ReasonOf(err)
			if reason == "" {
				c.logger.Warn("join authorization failed", zap.String("group", string(frame.Group)), zap.Error(err))
				reason = "internal"
			}
			c.reply(EventError, frame.Group, fields{"action": ActionJoin, "reason": reason})
			return
		}
		c.hub.Join(c, frame.Group)
		c.reply(EventAck, frame.Group, fields{"action": ActionJoin})
	case ActionLeave:
		c.hub.Leave(c, frame.Group)
		c.reply(EventAck, frame.Group, fields{"action": ActionLeave})
	default:
		c.reply(EventError, frame.Group, fields{"reason": apperr.ReasonInvalidInput, "message": "unknown action"})
	}
}

func (c *Client) reply(event string, group GroupKey, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Group: group, Payload: payload})
	if err != nil {
		return
	}
	if !c.enqueue(data) {
		c.hub.metrics.Dropped("websocket")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Debug("websocket write failed", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
