package orderservice

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

const (
	defaultTimeout       = 10 * time.Second
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Client calls the Order Service API with a service key
type Client struct {
	baseURL    string
	serviceKey string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// NewClient creates an Order Service HTTP client. Each call gets its own
// deadline of timeout; zero means 10s.
func NewClient(baseURL, serviceKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		timeout:    timeout,
		httpClient: &http.Client{},
		breaker:    newBreaker("order-service", logger),
		logger:     logger,
	}
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers mean the service is up
		IsSuccessful: func(err error) bool {
			var remote *errors.ErrRemote
			if stderrors.As(err, &remote) {
				return remote.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// do sends one request and returns the response body of a 2xx answer.
// Non-2xx answers come back as *errors.ErrRemote; everything else is
// classified into transport, timeout or blocked errors.
func (c *Client) do(ctx context.Context, op, method, path string, in interface{}, headers map[string]string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("order service client not configured: base URL required")
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if c.serviceKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &errors.ErrRemote{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		}
		return respBody, nil
	})
	if err != nil {
		classified := classify(op, err)
		c.logger.Warn("Order service request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(classified),
		)
		return nil, classified
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}, headers map[string]string) error {
	body, err := c.do(ctx, op, method, path, in, headers)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func classify(op string, err error) error {
	var remote *errors.ErrRemote
	if stderrors.As(err, &remote) {
		return err
	}
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return &errors.ErrBlocked{Op: op, Err: err}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return &errors.ErrTimeout{Op: op, Err: err}
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return &errors.ErrTimeout{Op: op, Err: err}
	}
	return &errors.ErrTransport{Op: op, Err: err}
}

func pathf(format string, ids ...string) string {
	escaped := make([]interface{}, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, escaped...)
}
