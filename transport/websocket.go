package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/hedeqiang/rebound/retry"
)

// ErrConnectionLost is returned to calls in flight when the socket drops.
var ErrConnectionLost = errors.New("transport/ws: connection lost")

// WebSocket implements Transport over a WebSocket connection.
//
// The connection is dialed lazily and redialed with backoff: a failed dial is
// retried per the RetryConfig, and a dropped connection is replaced on the
// next Call.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
	retry  RetryConfig
	nextID atomic.Uint64

	// connMu guards conn and serializes dialing.
	connMu sync.Mutex
	conn   *wsConn

	subMu sync.Mutex
	subs  map[uint64]chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	dropped chan struct{}
}

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*WebSocket)

// WithDialer replaces the default websocket.Dialer.
func WithDialer(d *websocket.Dialer) WebSocketOption {
	return func(ws *WebSocket) {
		ws.dialer = d
	}
}

// WithDialRetry overrides DefaultRetryConfig for dialing.
func WithDialRetry(cfg RetryConfig) WebSocketOption {
	return func(ws *WebSocket) {
		ws.retry = cfg
	}
}

// NewWebSocket creates a WebSocket transport.
// The connection is established lazily on the first Call.
func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	ws := &WebSocket{
		url:    url,
		dialer: websocket.DefaultDialer,
		retry:  DefaultRetryConfig(),
		subs:   make(map[uint64]chan []byte),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// connect returns the live connection, dialing with backoff if there is none.
func (ws *WebSocket) connect(ctx context.Context) (*wsConn, error) {
	ws.connMu.Lock()
	defer ws.connMu.Unlock()

	select {
	case <-ws.closed:
		return nil, ErrClosed
	default:
	}

	if ws.conn != nil {
		return ws.conn, nil
	}

	strategy := &retry.Backoff{MaxAttempts: ws.retry.MaxAttempts, Config: ws.retry.Backoff}
	err := retry.Do(ctx, strategy, func(ctx context.Context) error {
		conn, _, err := ws.dialer.DialContext(ctx, ws.url, nil)
		if err != nil {
			return fmt.Errorf("transport/ws: dial: %w", err)
		}
		c := &wsConn{ws: conn, dropped: make(chan struct{})}
		ws.conn = c
		go ws.readLoop(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws.conn, nil
}

// Call sends a JSON-RPC request over WebSocket and waits for the response.
func (ws *WebSocket) Call(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	c, err := ws.connect(ctx)
	if err != nil {
		return nil, err
	}

	id := ws.nextID.Add(1)
	req := newRequest(id, method, params)

	// Create a response channel for this request
	ch := make(chan []byte, 1)
	ws.subMu.Lock()
	ws.subs[id] = ch
	ws.subMu.Unlock()

	defer func() {
		ws.subMu.Lock()
		delete(ws.subs, id)
		ws.subMu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.ws.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		ws.drop(c)
		return nil, fmt.Errorf("transport/ws: write: %w", err)
	}

	return ws.await(ctx, c, ch)
}

// await waits for the response routed to ch. A reply that was delivered
// before the connection dropped still wins over ErrConnectionLost.
func (ws *WebSocket) await(ctx context.Context, c *wsConn, ch <-chan []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-ch:
		return decodeResponse(data)
	case <-c.dropped:
		select {
		case data := <-ch:
			return decodeResponse(data)
		default:
			return nil, ErrConnectionLost
		}
	case <-ws.closed:
		return nil, ErrClosed
	}
}

func decodeResponse(data []byte) ([]byte, error) {
	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("transport/ws: unmarshal: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Close terminates the WebSocket connection.
func (ws *WebSocket) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.closed)
	})

	ws.connMu.Lock()
	c := ws.conn
	ws.conn = nil
	ws.connMu.Unlock()

	if c != nil {
		return c.ws.Close()
	}
	return nil
}

// drop forgets c so the next Call redials.
func (ws *WebSocket) drop(c *wsConn) {
	ws.connMu.Lock()
	if ws.conn == c {
		ws.conn = nil
	}
	ws.connMu.Unlock()
	_ = c.ws.Close()
}

// readLoop reads messages from c and routes them to waiting callers.
func (ws *WebSocket) readLoop(c *wsConn) {
	defer close(c.dropped)
	defer ws.drop(c)

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var envelope struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil || envelope.ID == 0 {
			continue
		}

		ws.subMu.Lock()
		if ch, ok := ws.subs[envelope.ID]; ok {
			select {
			case ch <- message:
			default:
			}
		}
		ws.subMu.Unlock()
	}
}
