// Package fetch performs HTTP GETs with bounded exponential-backoff retry on
// transport failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrExhausted is returned once every attempt failed at the transport level.
var ErrExhausted = errors.New("fetch: retries exhausted")

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Clock provides the timed waits between attempts
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock waits on a timer
type RealClock struct{}

// Sleep blocks for d or until ctx is done
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff is the retry policy: MaxAttempts total attempts, waiting
// BaseDelay after the first failure and doubling up to MaxDelay.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultBackoff allows 5 attempts with waits of 1s, 2s, 4s, 8s (capped at 10s).
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based)
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := b.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if d > b.MaxDelay {
		return b.MaxDelay
	}
	return d
}

// Response is a completed HTTP exchange, whatever its status
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher issues GET requests and retries transport failures. Non-200
// responses are returned as is and never retried.
type Fetcher struct {
	client    Doer
	backoff   Backoff
	clock     Clock
	userAgent string
	limiter   *rate.Limiter
	logger    logrus.FieldLogger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithClient sets the HTTP client
func WithClient(c Doer) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithBackoff sets the retry policy
func WithBackoff(b Backoff) Option {
	return func(f *Fetcher) {
		f.backoff = b
	}
}

// WithClock sets the clock used for waits (for testing)
func WithClock(c Clock) Option {
	return func(f *Fetcher) {
		f.clock = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMinInterval spaces out requests, retries included, by at least d.
// Zero leaves requests unthrottled.
func WithMinInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		if d <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// New creates a Fetcher
func New(logger logrus.FieldLogger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		backoff: DefaultBackoff(),
		clock:   RealClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.backoff.MaxAttempts < 1 {
		f.backoff.MaxAttempts = 1
	}
	return f
}

// Fetch performs a GET against url with retry
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	var lastErr error

	for attempt := 1; attempt <= f.backoff.MaxAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := f.fetchOnce(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		f.logger.WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
		}).Errorf("transport failure: %v", err)

		if attempt < f.backoff.MaxAttempts {
			if err := f.clock.Sleep(ctx, f.backoff.Delay(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, f.backoff.MaxAttempts, lastErr)
}

// fetchOnce performs a single attempt
func (f *Fetcher) fetchOnce(req *http.Request) (*Response, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
