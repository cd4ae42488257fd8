// Package notify pushes per-user events (invitations, favorite changes) over
// one long-lived channel per user. Push is an accelerant: a user with no open
// channel simply finds the change on their next fetch.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/observ"
	"go.uber.org/zap"
)

const (
	TypeBoard    = "board"
	TypeTeam     = "team"
	TypeFavorite = "favorite"
)

// Event is the tagged payload written to the push channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Pusher delivers an event to one user. It never blocks on the recipient and
// never reports delivery failure.
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, ev Event)
}

// Channel is one user's open push stream.
type Channel struct {
	userID    uuid.UUID
	events    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (ch *Channel) UserID() uuid.UUID {
	return ch.userID
}

// Events yields encoded Event frames.
func (ch *Channel) Events() <-chan []byte {
	return ch.events
}

// Done is closed when the channel is closed or replaced.
func (ch *Channel) Done() <-chan struct{} {
	return ch.done
}

func (ch *Channel) shutdown() {
	ch.closeOnce.Do(func() { close(ch.done) })
}

// Dispatcher keeps at most one channel per user.
type Dispatcher struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*Channel
	buffer   int
	logger   *zap.Logger
	metrics  *observ.Metrics
}

func NewDispatcher(buffer int, logger *zap.Logger, metrics *observ.Metrics) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		channels: make(map[uuid.UUID]*Channel),
		buffer:   buffer,
		logger:   logger,
		metrics:  metrics,
	}
}

// Open registers a channel for userID. A channel the user already had is
// shut down and replaced.
func (d *Dispatcher) Open(userID uuid.UUID) *Channel {
	ch := &Channel{
		userID: userID,
		events: make(chan []byte, d.buffer),
		done:   make(chan struct{}),
	}

	d.mu.Lock()
	prev, replaced := d.channels[userID]
	d.channels[userID] = ch
	d.mu.Unlock()

	if replaced {
		prev.shutdown()
		d.logger.Debug("push channel replaced", zap.String("user_id", userID.String()))
	} else {
		d.metrics.ChannelOpened()
	}
	return ch
}

// Close unregisters ch if it is still the user's current channel. Closing a
// replaced or already-closed channel has no side effects.
func (d *Dispatcher) Close(ch *Channel) {
	d.mu.Lock()
	current, ok := d.channels[ch.userID]
	if ok && current == ch {
		delete(d.channels, ch.userID)
	}
	d.mu.Unlock()

	ch.shutdown()
	if ok && current == ch {
		d.metrics.ChannelClosed()
	}
}

func (d *Dispatcher) Connected(userID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.channels[userID]
	return ok
}

func (d *Dispatcher) Push(_ context.Context, userID uuid.UUID, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		d.logger.Error("failed to marshal push event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	d.deliver(userID, ev.Type, data)
}

func (d *Dispatcher) deliver(userID uuid.UUID, eventType string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.channels[userID]
	if !ok {
		d.metrics.Push(eventType, "no_channel")
		return
	}
	select {
	case ch.events <- data:
		d.metrics.Push(eventType, "delivered")
	default:
		d.metrics.Push(eventType, "dropped")
		d.metrics.Dropped("push")
		d.logger.Warn("dropped push event for slow channel",
			zap.String("user_id", userID.String()),
			zap.String("type", eventType),
		)
	}
}
