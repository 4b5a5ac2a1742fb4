package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every request with the method name as result. When
// closeAfter is positive each connection is closed after that many replies.
type rpcServer struct {
	rejectFirst int32
	closeAfter  int

	handshakes atomic.Int32
	conns      atomic.Int32
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.handshakes.Add(1) <= s.rejectFirst {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.conns.Add(1)

	for replies := 0; s.closeAfter <= 0 || replies < s.closeAfter; replies++ {
		var req jsonRPCRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method == "fail" {
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -1, "message": "nope"},
			})
			continue
		}
		_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": req.Method})
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocket_Call(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&rpcServer{})
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv), WithDialRetry(fastRetry(1)))
	defer ws.Close()

	for _, method := range []string{"alpha", "beta"} {
		res, err := ws.Call(context.Background(), method)
		require.NoError(t, err)

		var got string
		require.NoError(t, json.Unmarshal(res, &got))
		assert.Equal(t, method, got)
	}
}

func TestWebSocket_RPCError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&rpcServer{})
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv))
	defer ws.Close()

	_, err := ws.Call(context.Background(), "fail")

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "nope", rpcErr.Message)
}

func TestWebSocket_DialRetriedWithBackoff(t *testing.T) {
	t.Parallel()

	rpc := &rpcServer{rejectFirst: 2}
	srv := httptest.NewServer(rpc)
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv), WithDialRetry(fastRetry(3)))
	defer ws.Close()

	_, err := ws.Call(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, int32(3), rpc.handshakes.Load())
	assert.Equal(t, int32(1), rpc.conns.Load())
}

func TestWebSocket_DialGivesUp(t *testing.T) {
	t.Parallel()

	rpc := &rpcServer{rejectFirst: 100}
	srv := httptest.NewServer(rpc)
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv), WithDialRetry(fastRetry(2)))
	defer ws.Close()

	_, err := ws.Call(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport/ws: dial")
	assert.Equal(t, int32(3), rpc.handshakes.Load())
}

func TestWebSocket_RedialsAfterDrop(t *testing.T) {
	t.Parallel()

	rpc := &rpcServer{closeAfter: 1}
	srv := httptest.NewServer(rpc)
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv), WithDialRetry(fastRetry(1)))
	defer ws.Close()

	_, err := ws.Call(context.Background(), "first")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ws.connMu.Lock()
		defer ws.connMu.Unlock()
		return ws.conn == nil
	}, time.Second, 5*time.Millisecond, "dropped connection is forgotten")

	_, err = ws.Call(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, int32(2), rpc.conns.Load())
}

func TestWebSocket_CallAfterClose(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&rpcServer{})
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv))
	_, err := ws.Call(context.Background(), "ping")
	require.NoError(t, err)

	require.NoError(t, ws.Close())

	_, err = ws.Call(context.Background(), "ping")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWebSocket_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// read but never answer
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv))
	defer ws.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := ws.Call(ctx, "ping")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWebSocket_ReplyBeforeDropIsKept(t *testing.T) {
	t.Parallel()

	ws := NewWebSocket("ws://unused")
	c := &wsConn{dropped: make(chan struct{})}
	close(c.dropped)

	for i := 0; i < 50; i++ {
		ch := make(chan []byte, 1)
		ch <- []byte(`{"jsonrpc":"2.0","id":1,"result":"ok"}`)

		res, err := ws.await(context.Background(), c, ch)
		require.NoError(t, err, "iteration %d", i)
		assert.JSONEq(t, `"ok"`, string(res))
	}

	_, err := ws.await(context.Background(), c, make(chan []byte, 1))
	assert.ErrorIs(t, err, ErrConnectionLost)
}
