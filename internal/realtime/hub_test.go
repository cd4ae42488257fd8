package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/observ"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var allowAll = JoinAuthorizerFunc(func(context.Context, auth.Caller, GroupKey) error { return nil })

func newTestClient(hub *Hub, buffer int) *Client {
	c := NewClient(hub, nil, auth.Caller{UserID: uuid.New()}, allowAll, buffer, zap.NewNop())
	hub.Register(c)
	return c
}

func recv(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Envelope{}
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestHubCountsBroadcastsByGroupKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := NewHub(zap.NewNop(), observ.NewMetrics(reg))

	hub.Broadcast(context.Background(), BoardGroup(uuid.New()), EventItemCreated, nil)
	hub.Broadcast(context.Background(), BoardGroup(uuid.New()), EventItemDeleted, nil)
	hub.Broadcast(context.Background(), ChatRoomGroup(uuid.New()), EventReceiveMessage, nil)

	expected := `
# HELP boardsync_broadcasts_total Group broadcasts by group kind.
# TYPE boardsync_broadcasts_total counter
boardsync_broadcasts_total{kind="board"} 2
boardsync_broadcasts_total{kind="chatroom"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "boardsync_broadcasts_total"))
}

func TestHubBroadcastReachesOnlyJoined(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	a, b, outsider := newTestClient(hub, 4), newTestClient(hub, 4), newTestClient(hub, 4)

	require.True(t, hub.Join(a, "board:42"))
	require.True(t, hub.Join(b, "board:42"))
	assert.Equal(t, 2, hub.Members("board:42"))

	hub.Broadcast(context.Background(), "board:42", EventItemUpdated, map[string]string{"title": "x"})

	for _, c := range []*Client{a, b} {
		env := recv(t, c)
		assert.Equal(t, EventItemUpdated, env.Event)
		assert.Equal(t, GroupKey("board:42"), env.Group)
	}
	assertEmpty(t, outsider)
}

func TestHubLeaveAndUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	a, b := newTestClient(hub, 4), newTestClient(hub, 4)
	hub.Join(a, "board:1")
	hub.Join(b, "board:1")

	hub.Leave(a, "board:1")
	hub.Unregister(b)
	hub.Unregister(b)
	assert.Equal(t, 0, hub.Members("board:1"))

	hub.Broadcast(context.Background(), "board:1", EventItemDeleted, nil)
	assertEmpty(t, a)

	_, open := <-b.send
	assert.False(t, open)
	assert.False(t, hub.Join(b, "board:1"))
}

func TestHubSlowClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	slow, fast := newTestClient(hub, 1), newTestClient(hub, 8)
	hub.Join(slow, "board:7")
	hub.Join(fast, "board:7")

	for i := 0; i < 5; i++ {
		hub.Broadcast(context.Background(), "board:7", EventItemUpdated, i)
	}

	assert.Len(t, fast.send, 5)
	assert.Len(t, slow.send, 1)
}

func TestHubConcurrentJoinLeaveBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient(hub, 64)
			for j := 0; j < 50; j++ {
				hub.Join(c, "board:x")
				hub.Broadcast(context.Background(), "board:x", EventItemUpdated, j)
				hub.Leave(c, "board:x")
			}
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Members("board:x"))
}

func TestParseGroup(t *testing.T) {
	id := uuid.New()

	kind, got, err := ParseGroup(BoardGroup(id))
	require.NoError(t, err)
	assert.Equal(t, GroupBoard, kind)
	assert.Equal(t, id, got)

	_, _, err = ParseGroup("nope")
	assert.Error(t, err)
	_, _, err = ParseGroup(GroupKey("planet:" + id.String()))
	assert.Error(t, err)
	_, _, err = ParseGroup("board:42")
	assert.Error(t, err)
}

// wsServer runs the hub behind a real websocket endpoint. The caller id is
// taken from the "user" query parameter.
func wsServer(t *testing.T, hub *Hub, authorizer JoinAuthorizer) *httptest.Server {
	upgrader := NewUpgrader("*")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		caller := auth.Caller{UserID: uuid.MustParse(r.URL.Query().Get("user"))}
		NewClient(hub, conn, caller, authorizer, 16, zap.NewNop()).Run(context.Background())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func join(t *testing.T, conn *websocket.Conn, group GroupKey) Envelope {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Frame{Action: ActionJoin, Group: group}))
	return readEnvelope(t, conn)
}

func TestWebsocketGroupDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	srv := wsServer(t, hub, allowAll)

	a := dial(t, srv, uuid.New())
	b := dial(t, srv, uuid.New())
	outsider := dial(t, srv, uuid.New())

	assert.Equal(t, EventAck, join(t, a, "board:42").Event)
	assert.Equal(t, EventAck, join(t, b, "board:42").Event)

	hub.Broadcast(context.Background(), "board:42", EventItemCreated, map[string]string{"title": "new"})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, EventItemCreated, env.Event)
		assert.Equal(t, GroupKey("board:42"), env.Group)
	}

	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := outsider.ReadMessage()
	assert.Error(t, err, "outsider should receive nothing")
}

func TestWebsocketJoinDenied(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	deny := JoinAuthorizerFunc(func(context.Context, auth.Caller, GroupKey) error {
		return apperr.Forbidden(apperr.ReasonNotMember, "no")
	})
	srv := wsServer(t, hub, deny)

	conn := dial(t, srv, uuid.New())
	env := join(t, conn, "board:42")
	assert.Equal(t, EventError, env.Event)
	assert.Equal(t, 0, hub.Members("board:42"))

	payload, ok := env.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, apperr.ReasonNotMember, payload["reason"])
}

func TestRedisRelayFansOutAcrossHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newRelay := func() (*Hub, *RedisRelay) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		hub := NewHub(zap.NewNop(), nil)
		relay := NewRedisRelay(rdb, hub, zap.NewNop())
		go func() { _ = relay.Run(ctx) }()
		select {
		case <-relay.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not subscribe")
		}
		return hub, relay
	}

	hubA, relayA := newRelay()
	hubB, _ := newRelay()

	onA := newTestClient(hubA, 4)
	onB := newTestClient(hubB, 4)
	hubA.Join(onA, "board:9")
	hubB.Join(onB, "board:9")

	relayA.Broadcast(ctx, "board:9", EventItemUpdated, map[string]int{"n": 1})

	for _, c := range []*Client{onA, onB} {
		env := recv(t, c)
		assert.Equal(t, EventItemUpdated, env.Event)
	}
}
