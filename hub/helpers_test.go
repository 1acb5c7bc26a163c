package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/truongquangDat1103/robot-homeguard/pkg/cache"
	"github.com/truongquangDat1103/robot-homeguard/storage"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// testConn is a registry-ready connection backed by a real WebSocket pair.
// The write pump is not started: outbound frames stay in the send channel
// where tests can inspect them.
type testConn struct {
	*connection
	client *websocket.Conn
}

func newTestConn(t *testing.T, role types.Role, identity string) *testConn {
	t.Helper()

	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgraded <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	var serverSide *websocket.Conn
	select {
	case serverSide = <-upgraded:
	case <-time.After(time.Second):
		t.Fatal("upgrade did not complete")
	}

	conn := newConnection(serverSide, role, identity, 16, time.Minute, time.Second)
	t.Cleanup(func() {
		conn.close()
		_ = client.Close()
	})
	return &testConn{connection: conn, client: client}
}

// recvEnvelope pops the next queued outbound frame without a write pump
func recvEnvelope(t *testing.T, c *connection) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no envelope queued")
		return Envelope{}
	}
}

// assertNoEnvelope verifies nothing is waiting in the send queue
func assertNoEnvelope(t *testing.T, c *connection) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected envelope queued: %s", data)
	default:
	}
}

// newTestRouter builds a router over a fresh registry without metrics
func newTestRouter() (*Registry, *Router) {
	reg := NewRegistry()
	return reg, NewRouter(reg, nil, slog.Default())
}

func newTestCache[V any](t *testing.T, ttl time.Duration) cache.Cache[V] {
	t.Helper()
	c, err := cache.NewTTL[V](context.Background(), ttl, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newTestWriter builds a started async writer over an in-memory store
func newTestWriter(t *testing.T) (*storage.MemoryStore, *storage.AsyncWriter) {
	t.Helper()
	store := storage.NewMemoryStore()
	writer := storage.NewAsyncWriter(store, 64, nil)
	writer.Start(context.Background())
	t.Cleanup(func() { _ = writer.Stop(time.Second) })
	return store, writer
}

// flushWriter stops and restarts nothing; it waits for queued writes to land
func flushWriter(t *testing.T, store *storage.MemoryStore, want int, get func(*storage.MemoryStore) int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if get(store) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d persisted records, got %d", want, get(store))
}
