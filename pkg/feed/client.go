// Package feed pulls match records from the odds feed over HTTP.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/phenomenon0/matchradar/pkg/match"
)

const (
	defaultRateLimit = 2.0
	defaultBurst     = 2
	maxBodyBytes     = 8 << 20
)

// ErrUnavailable wraps every reason a pull produced no data: transport errors,
// non-200 status, undecodable bodies and an open breaker.
var ErrUnavailable = errors.New("feed unavailable")

// Fetcher returns the current match set.
type Fetcher interface {
	Fetch(ctx context.Context) ([]match.Snapshot, error)
}

// Client fetches a JSON array of match records from one URL.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// ClientOption configures the client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient    *http.Client
	limiter       *rate.Limiter
	failures      uint32
	cooldown      time.Duration
	onStateChange func(from, to gobreaker.State)
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(o *clientOptions) { o.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithBreaker trips the breaker after failures consecutive failures and probes
// again after cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.failures = failures
		o.cooldown = cooldown
	}
}

// WithStateChange is called on every breaker transition.
func WithStateChange(fn func(from, to gobreaker.State)) ClientOption {
	return func(o *clientOptions) { o.onStateChange = fn }
}

// NewClient creates a client for url.
func NewClient(url string, opts ...ClientOption) *Client {
	o := clientOptions{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		failures: 3,
		cooldown: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	st := gobreaker.Settings{
		Name:    "feed",
		Timeout: o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.failures
		},
	}
	if o.onStateChange != nil {
		st.OnStateChange = func(_ string, from, to gobreaker.State) {
			o.onStateChange(from, to)
		}
	}

	return &Client{
		url:        url,
		httpClient: o.httpClient,
		limiter:    o.limiter,
		breaker:    gobreaker.NewCircuitBreaker(st),
	}
}

// BreakerState reports the breaker position.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Fetch pulls and normalizes the current records. Malformed fields never fail a
// pull; only an unreadable response does.
func (c *Client) Fetch(ctx context.Context) ([]match.Snapshot, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.([]match.Snapshot), nil
}

func (c *Client) fetch(ctx context.Context) ([]match.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var records []match.Record
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return match.NormalizeAll(records), nil
}

// StaticFetcher serves a fixed set. Used by the snapshot command and tests.
type StaticFetcher []match.Snapshot

func (s StaticFetcher) Fetch(context.Context) ([]match.Snapshot, error) {
	return append([]match.Snapshot(nil), s...), nil
}
