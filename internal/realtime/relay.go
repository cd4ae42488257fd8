package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const groupChannelPrefix = "kanban:group:"

type relayMessage struct {
	Group GroupKey        `json:"group"`
	Event string          `json:"event"`
	Frame json.RawMessage `json:"frame"`
}

// RedisRelay broadcasts through Redis pub/sub so every instance's hub sees
// the event. Each instance delivers only what it receives from Redis,
// including its own publishes, which keeps per-group order the same
// everywhere.
type RedisRelay struct {
	rdb    *redis.Client
	hub    *Hub
	logger *zap.Logger
	ready  chan struct{}
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, hub: hub, logger: logger, ready: make(chan struct{})}
}

func (r *RedisRelay) Broadcast(ctx context.Context, group GroupKey, event string, payload any) {
	frame, err := json.Marshal(Envelope{Event: event, Group: group, Payload: payload})
	if err != nil {
		r.logger.Error("failed to marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	msg, err := json.Marshal(relayMessage{Group: group, Event: event, Frame: frame})
	if err != nil {
		r.logger.Error("failed to marshal relay message", zap.String("event", event), zap.Error(err))
		return
	}

	// The request may finish before Redis answers.
	pubCtx := context.WithoutCancel(ctx)
	if err := r.rdb.Publish(pubCtx, groupChannelPrefix+string(group), msg).Err(); err != nil {
		r.logger.Warn("redis publish failed, delivering locally",
			zap.String("group", string(group)),
			zap.Error(err),
		)
		r.hub.deliver(group, event, frame)
	}
}

// Ready is closed once the pattern subscription is active.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run feeds relayed messages into the local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, groupChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe group relay: %w", err)
	}
	close(r.ready)
	r.logger.Info("group relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg relayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.Warn("dropping malformed relay message",
					zap.String("channel", m.Channel),
					zap.Error(err),
				)
				continue
			}
			if msg.Group == "" {
				msg.Group = GroupKey(strings.TrimPrefix(m.Channel, groupChannelPrefix))
			}
			r.hub.deliver(msg.Group, msg.Event, msg.Frame)
		}
	}
}
