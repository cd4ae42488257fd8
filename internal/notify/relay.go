package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const userChannelPrefix = "kanban:user:"

type relayMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// RedisRelay routes pushes through Redis so the instance holding the user's
// SSE connection delivers it.
type RedisRelay struct {
	rdb        *redis.Client
	dispatcher *Dispatcher
	logger     *zap.Logger
	ready      chan struct{}
}

func NewRedisRelay(rdb *redis.Client, dispatcher *Dispatcher, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, dispatcher: dispatcher, logger: logger, ready: make(chan struct{})}
}

func (r *RedisRelay) Push(ctx context.Context, userID uuid.UUID, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("failed to marshal push event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	msg, err := json.Marshal(relayMessage{Type: ev.Type, Event: data})
	if err != nil {
		r.logger.Error("failed to marshal relay message", zap.Error(err))
		return
	}

	pubCtx := context.WithoutCancel(ctx)
	if err := r.rdb.Publish(pubCtx, userChannelPrefix+userID.String(), msg).Err(); err != nil {
		r.logger.Warn("redis publish failed, delivering locally",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		r.dispatcher.deliver(userID, ev.Type, data)
	}
}

func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run hands relayed pushes to the local dispatcher until ctx is cancelled.
// Users with no channel on this instance are skipped.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe user relay: %w", err)
	}
	close(r.ready)
	r.logger.Info("user relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			userID, err := uuid.Parse(strings.TrimPrefix(m.Channel, userChannelPrefix))
			if err != nil {
				r.logger.Warn("relay channel has no user id", zap.String("channel", m.Channel))
				continue
			}
			var msg relayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.Warn("dropping malformed relay message", zap.Error(err))
				continue
			}
			if !r.dispatcher.Connected(userID) {
				continue
			}
			r.dispatcher.deliver(userID, msg.Type, msg.Event)
		}
	}
}
