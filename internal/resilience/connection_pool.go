package resilience

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// ConnectionPool manages a shared HTTP transport with bounded timeouts for
// outbound calls. Every request carries the caller's context, so an inbound
// request deadline propagates to the upstream call.
type ConnectionPool struct {
	client  *http.Client
	timeout time.Duration

	requests int64
	failures int64
	inFlight int64
}

// NewConnectionPool creates a pool with connection reuse limits and a
// per-request timeout
func NewConnectionPool(maxIdle, maxActive int, idleTimeout, requestTimeout time.Duration) *ConnectionPool {
	transport := &http.Transport{
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle / 2,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		timeout: requestTimeout,
	}
}

// DoRequest executes an HTTP request through the pool. The body may be nil.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	atomic.AddInt64(&cp.requests, 1)
	atomic.AddInt64(&cp.inFlight, 1)
	defer atomic.AddInt64(&cp.inFlight, -1)

	start := time.Now()
	resp, err := cp.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		atomic.AddInt64(&cp.failures, 1)
		slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
		return nil, err
	}

	slog.Debug("Request completed", "url", url, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())
	return resp, nil
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"total_requests":     atomic.LoadInt64(&cp.requests),
		"transport_failures": atomic.LoadInt64(&cp.failures),
		"in_flight":          atomic.LoadInt64(&cp.inFlight),
		"request_timeout_ms": cp.timeout.Milliseconds(),
	}
}

// Close releases idle connections held by the transport
func (cp *ConnectionPool) Close() error {
	if transport, ok := cp.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}

	slog.Info("Connection pool closed")
	return nil
}
