package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/retry"
)

// HTTPDispatcher posts batches to the endpoint named by each event.
// Safe for concurrent use.
type HTTPDispatcher struct {
	client  *http.Client
	timeout time.Duration
	policy  retry.Policy
	log     *slog.Logger
}

// HTTPOption configures an HTTPDispatcher.
type HTTPOption func(*HTTPDispatcher)

// WithHTTPClient sets the client used for deliveries.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(d *HTTPDispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(t time.Duration) HTTPOption {
	return func(d *HTTPDispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithRetries sets the retry count and exponential backoff bounds.
func WithRetries(maxRetries int, initial, maxDelay time.Duration) HTTPOption {
	return func(d *HTTPDispatcher) {
		if maxRetries >= 0 {
			d.policy.MaxRetries = maxRetries
		}
		d.policy.Backoff = retry.Exponential{Initial: initial, Max: maxDelay, Multiplier: 2, Jitter: 0.1}
	}
}

// WithBreaker shares a circuit breaker across deliveries.
func WithBreaker(b *retry.Breaker) HTTPOption {
	return func(d *HTTPDispatcher) {
		d.policy.Breaker = b
	}
}

// WithLogger sets the logger for failed deliveries.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(d *HTTPDispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewHTTP creates a dispatcher with default retries and no breaker.
func NewHTTP(opts ...HTTPOption) *HTTPDispatcher {
	d := &HTTPDispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: 10 * time.Second,
		policy:  retry.Policy{MaxRetries: 3, Backoff: retry.DefaultBackoff()},
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		d.log.Debug("retrying event delivery", logger.Attempt(attempt), logger.Duration(delay), logger.Error(err))
	}
	return d
}

// NewHTTPFromConfig builds a dispatcher with its own circuit breaker.
func NewHTTPFromConfig(cfg HTTPConfig, opts ...HTTPOption) *HTTPDispatcher {
	base := []HTTPOption{
		WithTimeout(cfg.Timeout),
		WithRetries(cfg.MaxRetries, cfg.BackoffInitial, cfg.BackoffMax),
	}
	if cfg.FailureThreshold > 0 {
		base = append(base, WithBreaker(retry.NewBreaker(cfg.FailureThreshold, 1, cfg.RecoveryTimeout)))
	}
	return NewHTTP(append(base, opts...)...)
}

// DispatchEvent delivers e, retrying transport failures, 5xx and the
// retryable 4xx statuses. Other 4xx responses fail immediately with
// ErrPermanentFailure.
func (d *HTTPDispatcher) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	if e.EndpointURL == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidEvent)
	}
	verb := e.HTTPVerb
	if verb == "" {
		verb = http.MethodPost
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	start := time.Now()
	err = retry.Do(ctx, d.policy, func(ctx context.Context, _ int) error {
		return d.attempt(ctx, verb, e.EndpointURL, body)
	})
	if err != nil {
		d.log.WarnContext(ctx, "event delivery failed",
			logger.URL(e.EndpointURL),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (d *HTTPDispatcher) attempt(ctx context.Context, verb, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, verb, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("%w: %w", ErrInvalidEvent, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	// 64KB is plenty for an error message
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := fmt.Sprintf("status %d", resp.StatusCode)
	if text := strings.ReplaceAll(strings.TrimSpace(string(data)), "\n", " "); text != "" {
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		msg += ": " + text
	}
	if isPermanentStatus(resp.StatusCode) {
		return retry.Permanent(fmt.Errorf("%w: %s", ErrPermanentFailure, msg))
	}
	return fmt.Errorf("%w: %s", ErrDeliveryFailed, msg)
}

// isPermanentStatus treats 4xx as final except timeouts and rate limits.
func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
