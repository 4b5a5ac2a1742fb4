// Package transport provides JSON-RPC clients that retry with backoff.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hedeqiang/rebound/backoff"
)

// ErrClosed is returned by calls on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Transport sends JSON-RPC requests and returns raw responses.
type Transport interface {
	// Call sends a JSON-RPC request and returns the result bytes.
	Call(ctx context.Context, method string, params ...interface{}) ([]byte, error)

	// Close terminates the transport connection.
	Close() error
}

// RetryConfig controls how a transport retries transient failures.
type RetryConfig struct {
	// MaxAttempts is the number of retries after the first try.
	MaxAttempts int

	Backoff backoff.Config
}

// DefaultRetryConfig retries three times starting at 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff: backoff.Config{
			MinimumDelay: 100,
			MaximumDelay: 5000,
			GrowthFactor: 2,
			JitterRatio:  0.2,
		},
	}
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the remote end. It is never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error: code=%d message=%s", e.Code, e.Message)
}

func newRequest(id uint64, method string, params []interface{}) jsonRPCRequest {
	if params == nil {
		params = []interface{}{}
	}
	return jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
}
