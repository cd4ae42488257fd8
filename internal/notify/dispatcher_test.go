package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readEvent(t *testing.T, ch *Channel) Event {
	t.Helper()
	select {
	case data := <-ch.Events():
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestPushDeliversToOpenChannel(t *testing.T) {
	d := NewDispatcher(4, zap.NewNop(), nil)
	user := uuid.New()
	ch := d.Open(user)

	d.Push(context.Background(), user, Event{Type: TypeBoard, Data: map[string]string{"token": "t1"}})

	ev := readEvent(t, ch)
	assert.Equal(t, TypeBoard, ev.Type)
	assert.Equal(t, "t1", ev.Data.(map[string]any)["token"])
}

func TestPushWithoutChannelIsDropped(t *testing.T) {
	d := NewDispatcher(4, zap.NewNop(), nil)
	other := d.Open(uuid.New())

	d.Push(context.Background(), uuid.New(), Event{Type: TypeTeam})

	assert.Len(t, other.events, 0)
}

func TestPushNeverBlocks(t *testing.T) {
	d := NewDispatcher(1, zap.NewNop(), nil)
	user := uuid.New()
	ch := d.Open(user)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Push(context.Background(), user, Event{Type: TypeFavorite, Data: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a full channel")
	}
	assert.Len(t, ch.events, 1)
}

func TestOpenReplacesPreviousChannel(t *testing.T) {
	d := NewDispatcher(4, zap.NewNop(), nil)
	user := uuid.New()

	first := d.Open(user)
	second := d.Open(user)

	select {
	case <-first.Done():
	default:
		t.Fatal("first channel should be shut down")
	}

	// Closing the stale handle must not unregister the new one.
	d.Close(first)
	assert.True(t, d.Connected(user))

	d.Push(context.Background(), user, Event{Type: TypeBoard})
	assert.Equal(t, TypeBoard, readEvent(t, second).Type)

	d.Close(second)
	d.Close(second)
	assert.False(t, d.Connected(user))
}

func TestServeSSE(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := NewDispatcher(4, zap.NewNop(), nil)
	user := uuid.New()

	r := gin.New()
	r.GET("/sse", func(c *gin.Context) { ServeSSE(c, d, user, time.Hour) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return d.Connected(user) }, time.Second, 10*time.Millisecond)
	d.Push(context.Background(), user, Event{Type: TypeBoard, Data: "hello"})

	reader := bufio.NewReader(resp.Body)
	var dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	assert.JSONEq(t, `{"type":"board","data":"hello"}`, dataLine)

	resp.Body.Close()
	require.Eventually(t, func() bool { return !d.Connected(user) }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisRelayReachesRemoteDispatcher(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newNode := func() (*Dispatcher, *RedisRelay) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		d := NewDispatcher(4, zap.NewNop(), nil)
		relay := NewRedisRelay(rdb, d, zap.NewNop())
		go func() { _ = relay.Run(ctx) }()
		select {
		case <-relay.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not subscribe")
		}
		return d, relay
	}

	_, sender := newNode()
	remote, _ := newNode()

	user := uuid.New()
	ch := remote.Open(user)

	sender.Push(ctx, user, Event{Type: TypeTeam, Data: "invite"})

	ev := readEvent(t, ch)
	assert.Equal(t, TypeTeam, ev.Type)
	assert.Equal(t, "invite", ev.Data)
}
