package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/hedeqiang/rebound/retry"
)

// HTTP implements Transport over HTTP JSON-RPC. Network errors, 429 and 5xx
// responses are retried; other failures are returned at once.
type HTTP struct {
	url    string
	client *http.Client
	retry  RetryConfig
	nextID atomic.Uint64
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithHTTPRetry overrides DefaultRetryConfig.
func WithHTTPRetry(cfg RetryConfig) HTTPOption {
	return func(h *HTTP) {
		h.retry = cfg
	}
}

// NewHTTP creates an HTTP transport targeting the given JSON-RPC endpoint.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:    url,
		client: &http.Client{},
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Call sends an HTTP JSON-RPC request and returns the result bytes.
// Retries reuse the same request id.
func (h *HTTP) Call(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	body, err := json.Marshal(newRequest(h.nextID.Add(1), method, params))
	if err != nil {
		return nil, fmt.Errorf("transport/http: marshal request: %w", err)
	}

	strategy := &retry.Backoff{MaxAttempts: h.retry.MaxAttempts, Config: h.retry.Backoff}

	var result []byte
	err = retry.Do(ctx, strategy, func(ctx context.Context) error {
		res, err := h.post(ctx, body)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *HTTP) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("transport/http: create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport/http: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport/http: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body := string(respBody)
		if len(body) > 256 {
			body = body[:256]
		}
		err := fmt.Errorf("transport/http: HTTP %d: %s", resp.StatusCode, body)
		if retryableStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, retry.Permanent(fmt.Errorf("transport/http: unmarshal response (status %d): %w", resp.StatusCode, err))
	}

	if rpcResp.Error != nil {
		return nil, retry.Permanent(rpcResp.Error)
	}

	return rpcResp.Result, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Close is a no-op for HTTP transport.
func (h *HTTP) Close() error {
	return nil
}
