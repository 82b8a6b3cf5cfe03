package geo

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 24 * time.Hour
)

type cacheEntry struct {
	regions []domain.Region
	expires time.Time
}

// Client reads the third-party geography directory. Region lists change
// rarely, so answers are cached and concurrent lookups for the same key
// share one request.
type Client struct {
	baseURL    string
	timeout    time.Duration
	ttl        time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]domain.Region]
	group      singleflight.Group
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewClient creates a directory client
func NewClient(baseURL string, timeout, ttl time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    timeout,
		ttl:        ttl,
		httpClient: &http.Client{},
		breaker: gobreaker.NewCircuitBreaker[[]domain.Region](gobreaker.Settings{
			Name:    "geo-directory",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: isSuccessful,
		}),
		logger: logger,
		cache:  make(map[string]cacheEntry),
		now:    time.Now,
	}
}

// Provinces lists all provinces
func (c *Client) Provinces(ctx context.Context) ([]domain.Region, error) {
	return c.fetch(ctx, "provinces", "/provinces")
}

// Districts lists the districts of a province
func (c *Client) Districts(ctx context.Context, provinceCode string) ([]domain.Region, error) {
	return c.fetch(ctx, "districts:"+provinceCode, "/provinces/"+url.PathEscape(provinceCode)+"/districts")
}

// Wards lists the wards of a district
func (c *Client) Wards(ctx context.Context, districtCode string) ([]domain.Region, error) {
	return c.fetch(ctx, "wards:"+districtCode, "/districts/"+url.PathEscape(districtCode)+"/wards")
}

// Invalidate drops every cached list
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, key, path string) ([]domain.Region, error) {
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.regions, nil
	}

	// the shared request outlives any single caller; get bounds it with the client timeout
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		regions, err := c.breaker.Execute(func() ([]domain.Region, error) {
			return c.get(flightCtx, path)
		})
		if err != nil {
			return nil, classify("geography "+key, err)
		}
		c.mu.Lock()
		c.cache[key] = cacheEntry{regions: regions, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return regions, nil
	})

	select {
	case <-ctx.Done():
		return nil, classify("geography "+key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("Geography directory lookup failed", zap.String("key", key), zap.Bool("shared", res.Shared), zap.Error(res.Err))
			return nil, res.Err
		}
		return res.Val.([]domain.Region), nil
	}
}

// isSuccessful keeps caller cancellations and unknown codes from tripping the breaker
func isSuccessful(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return true
	}
	var remote *errors.ErrRemote
	return stderrors.As(err, &remote) && remote.Status < http.StatusInternalServerError
}

func (c *Client) get(ctx context.Context, path string) ([]domain.Region, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("geography directory not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &errors.ErrRemote{Op: "geography directory", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var regions []domain.Region
	if err := json.NewDecoder(resp.Body).Decode(&regions); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	return regions, nil
}

func classify(op string, err error) error {
	var remote *errors.ErrRemote
	switch {
	case stderrors.As(err, &remote):
		return err
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return &errors.ErrBlocked{Op: op, Err: err}
	case stderrors.Is(err, context.DeadlineExceeded):
		return &errors.ErrTimeout{Op: op, Err: err}
	case stderrors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return &errors.ErrTransport{Op: op, Err: err}
	}
}
