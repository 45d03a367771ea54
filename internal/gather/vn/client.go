// Package vn fetches Vietnamese market data from the Vietcap trading API and
// normalizes its column-oriented JSON payloads into frames.
package vn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

// BreakerConfig configures the client's circuit breaker.
type BreakerConfig struct {
	Enabled bool
	// MaxFailures is the number of consecutive transport failures that opens
	// the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe.
	OpenTimeout time.Duration
}

// ClientOpts holds transport settings for Client.
type ClientOpts struct {
	Timeout      time.Duration
	Headers      map[string]string
	RateLimitMin int
	Breaker      BreakerConfig
	Logger       *slog.Logger
}

// Client posts JSON payloads to the Vietcap API. It never retries: every
// failure is returned to the caller once.
type Client struct {
	http    *http.Client
	headers map[string]string
	limiter *util.RateLimiter
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = util.Discard()
	}
	log = log.With("component", "vietcap")

	c := &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		headers: opts.Headers,
		limiter: util.NewRateLimiter(opts.RateLimitMin),
		log:     log,
	}
	if opts.Breaker.Enabled {
		maxFailures := opts.Breaker.MaxFailures
		if maxFailures == 0 {
			maxFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "vietcap",
			MaxRequests: 1,
			Timeout:     opts.Breaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return c
}

// PostJSON POSTs payload as JSON to url and returns the raw response body.
// Non-2xx responses and transport failures are *domain.TransportError.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	if c.breaker == nil {
		return c.post(ctx, url, payload)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, url, payload)
	})
	if err != nil {
		var te *domain.TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		// gobreaker.ErrOpenState / ErrTooManyRequests
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	return out.(json.RawMessage), nil
}

func (c *Client) post(ctx context.Context, url string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.log.Debug("request", "url", url, "payload", string(body))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", snippet(data))}
	}
	return json.RawMessage(data), nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
