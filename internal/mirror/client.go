// Package mirror is the HTTP client for a remote aera peer. It speaks the
// /api contract served by internal/adapters/httpapi and implements core.Peer
// so the sync reconciler can push records to it.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"aeracore/internal/core"
	"aeracore/pkg/domain"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("peer unavailable")

// StatusError is a non-2xx response from the peer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("peer responded %d", e.Code)
	}
	return fmt.Sprintf("peer responded %d: %s", e.Code, e.Message)
}

// Is maps client error codes onto the domain sentinels.
func (e *StatusError) Is(target error) bool {
	switch e.Code {
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	case http.StatusBadRequest:
		return target == domain.ErrInvalidInput
	case http.StatusConflict:
		return target == domain.ErrStaleWrite
	}
	return false
}

// Config configures a Client.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBreakerSettings overrides the circuit breaker settings. Name and
// IsSuccessful are filled in when empty.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breakerSettings = &st }
}

// Client calls a remote peer through a rate limiter and a circuit breaker.
type Client struct {
	base            *url.URL
	http            *http.Client
	limiter         *rate.Limiter
	breaker         *gobreaker.CircuitBreaker
	breakerSettings *gobreaker.Settings
	logger          *zap.Logger
}

var _ core.Peer = (*Client)(nil)

// New builds a client for cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("peer base url required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse peer url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("peer url %q must be http or https", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(c.settings())
	return c, nil
}

func (c *Client) settings() gobreaker.Settings {
	st := gobreaker.Settings{
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			return counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
	}
	if c.breakerSettings != nil {
		st = *c.breakerSettings
	}
	if st.Name == "" {
		st.Name = "peer:" + c.base.Host
	}
	if st.IsSuccessful == nil {
		st.IsSuccessful = countsAsHealthy
	}
	logger := c.logger
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("peer breaker state change", zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
	}
	return st
}

// countsAsHealthy treats client errors as answers from a healthy peer; only
// transport failures and 5xx trip the breaker.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < http.StatusInternalServerError
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State { return c.breaker.State() }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+"/api"+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		c.logger.Debug("peer request failed", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func escape(segment string) string { return url.PathEscape(segment) }
