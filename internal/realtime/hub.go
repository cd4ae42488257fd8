package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lalith-99/boardsync/internal/observ"
	"go.uber.org/zap"
)

// Hub owns the group table. Join, Leave and Broadcast are safe to call
// concurrently; a slow connection only loses its own messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	groups  map[GroupKey]map[*Client]struct{}

	// sendMu orders broadcasts so every member of a group sees the same
	// sequence.
	sendMu sync.Mutex

	logger  *zap.Logger
	metrics *observ.Metrics
}

func NewHub(logger *zap.Logger, metrics *observ.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		groups:  make(map[GroupKey]map[*Client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected()
}

// Unregister drops c from every group and closes its send queue. Calling it
// twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for key := range c.groups {
		h.removeLocked(c, key)
	}
	close(c.send)
	h.mu.Unlock()
	h.metrics.ClientDisconnected()
}

// Join adds c to group. It returns false when c is not registered.
func (h *Hub) Join(c *Client, group GroupKey) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
	c.groups[group] = struct{}{}
	return true
}

func (h *Hub) Leave(c *Client, group GroupKey) {
	h.mu.Lock()
	h.removeLocked(c, group)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client, group GroupKey) {
	delete(c.groups, group)
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Members returns how many connections are in group.
func (h *Hub) Members(group GroupKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Broadcast marshals the envelope once and queues it on every member.
func (h *Hub) Broadcast(_ context.Context, group GroupKey, event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Group: group, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal broadcast",
			zap.String("group", string(group)),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	h.deliver(group, event, data)
}

// deliver queues an already-encoded frame. The Redis relay uses it to avoid
// re-encoding messages that arrive from other instances.
func (h *Hub) deliver(group GroupKey, event string, data []byte) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.metrics.Broadcast(kindOf(group))
	for c := range h.groups[group] {
		if !c.enqueue(data) {
			h.metrics.Dropped("websocket")
			h.logger.Warn("dropped broadcast for slow client",
				zap.String("group", string(group)),
				zap.String("event", event),
				zap.String("user_id", c.userID.String()),
			)
		}
	}
}
