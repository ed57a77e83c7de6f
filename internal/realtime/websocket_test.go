package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedServer(t *testing.T, session func(n int32, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var sessions int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeFrame
		if err := conn.ReadJSON(&sub); err != nil || sub.Type != "subscribe" {
			return
		}
		session(atomic.AddInt32(&sessions, 1), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func next(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestWebSocketSourceFiltersTables(t *testing.T) {
	srv := feedServer(t, func(n int32, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"change","table":"orders","action":"INSERT","id":1}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ack"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"change","table":"lotteries","action":"UPDATE","id":7,"record":{"status":"completed"}}`))
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewWebSocketSource(wsURL(srv), zerolog.Nop())
	defer src.Close()

	ch, err := src.Subscribe(ctx, []string{"lotteries", "products"})
	require.NoError(t, err)

	c := next(t, ch)
	assert.Equal(t, "lotteries", c.Table)
	assert.Equal(t, ActionUpdate, c.Action)
	assert.Equal(t, int64(7), c.RecordID)
	assert.Equal(t, "completed", c.Record["status"])
}

func TestWebSocketSourceReconnectsWithResync(t *testing.T) {
	srv := feedServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			return // drop the first session immediately
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"change","table":"products","action":"DELETE","id":3}`))
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewWebSocketSource(wsURL(srv), zerolog.Nop()).
		WithBackoff(Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 2})
	defer src.Close()

	ch, err := src.Subscribe(ctx, []string{"products"})
	require.NoError(t, err)

	assert.Equal(t, Change{Table: "products", Action: ActionResync}, next(t, ch))
	c := next(t, ch)
	assert.Equal(t, ActionDelete, c.Action)
	assert.Equal(t, int64(3), c.RecordID)
}

func TestWebSocketSourceCloseEndsChannel(t *testing.T) {
	srv := feedServer(t, func(n int32, conn *websocket.Conn) {
		conn.ReadMessage()
	})

	src := NewWebSocketSource(wsURL(srv), zerolog.Nop())
	ch, err := src.Subscribe(context.Background(), []string{"products"})
	require.NoError(t, err)

	require.NoError(t, src.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestWebSocketSourceDialFailure(t *testing.T) {
	src := NewWebSocketSource("ws://127.0.0.1:1/feed", zerolog.Nop())
	_, err := src.Subscribe(context.Background(), []string{"products"})
	assert.Error(t, err)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, 30*time.Second, b.Delay(10))

	jittered := DefaultBackoff().Delay(3)
	assert.GreaterOrEqual(t, jittered, time.Second)
	assert.LessOrEqual(t, jittered, 10*time.Second)
}
