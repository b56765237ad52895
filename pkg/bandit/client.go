package bandit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/retry"
)

const ruleIDPlaceholder = "{ruleId}"

// Fetcher predicts a variation id for a bandit rule.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (variationID string, err error)
}

// Client calls the prediction service over HTTP.
// Zero value is not usable; use NewClient.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	policy   retry.Policy
	tracer   trace.Tracer
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for prediction calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.policy.MaxRetries = n
		}
	}
}

// WithBackoff sets exponential backoff bounds between attempts.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.policy.Backoff = retry.Exponential{Initial: initial, Max: maxDelay, Multiplier: 2}
	}
}

// WithTracer sets the tracer that spans each prediction call.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLogger sets the logger for failed attempts.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a prediction client. The endpoint may contain a
// {ruleId} placeholder replaced on every call.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		timeout:  10 * time.Second,
		policy: retry.Policy{
			MaxRetries: 1,
			Backoff:    retry.Exponential{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Multiplier: 2},
		},
		tracer: otel.Tracer("flagkit/bandit"),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.log.Debug("retrying bandit fetch", logger.Attempt(attempt), logger.Duration(delay), logger.Error(err))
	}
	return c, nil
}

type predictionRequest struct {
	Instances []instance `json:"instances"`
}

type instance struct {
	VisitorID    string      `json:"visitorId"`
	ExperimentID string      `json:"experimentId"`
	Attributes   []Attribute `json:"attributes"`
	CmabUUID     string      `json:"cmabUUID"`
}

type predictionResponse struct {
	Predictions []struct {
		VariationID string `json:"variation_id"`
	} `json:"predictions"`
}

// Fetch asks the service for a variation. Transport failures and non-2xx
// responses are retried; an invalid 2xx payload is not.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "bandit.Client.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bandit.rule_id", req.RuleID),
			attribute.String("bandit.request_id", req.RequestID),
		),
	)
	defer span.End()

	attrs := req.Attributes
	if attrs == nil {
		attrs = []Attribute{}
	}
	body, err := json.Marshal(predictionRequest{Instances: []instance{{
		VisitorID:    req.UserID,
		ExperimentID: req.RuleID,
		Attributes:   attrs,
		CmabUUID:     req.RequestID,
	}}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal request")
		return "", fmt.Errorf("%w: marshal request: %w", ErrFetchFailed, err)
	}
	target := strings.ReplaceAll(c.endpoint, ruleIDPlaceholder, url.PathEscape(req.RuleID))

	var variationID string
	var attempts int
	err = retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		attempts = attempt
		id, err := c.attempt(ctx, target, body)
		if err != nil {
			return err
		}
		variationID = id
		return nil
	})
	span.SetAttributes(attribute.Int("bandit.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.WarnContext(ctx, "bandit fetch failed",
			logger.ExperimentID(req.RuleID),
			logger.UserID(req.UserID),
			logger.Attempt(attempts),
			logger.Error(err),
		)
		return "", err
	}
	span.SetAttributes(attribute.String("bandit.variation_id", variationID))
	return variationID, nil
}

func (c *Client) attempt(ctx context.Context, target string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("%w: %w", ErrFetchFailed, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var pr predictionResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return "", retry.Permanent(fmt.Errorf("%w: %w", ErrInvalidResponse, err))
	}
	if len(pr.Predictions) == 0 || pr.Predictions[0].VariationID == "" {
		return "", retry.Permanent(fmt.Errorf("%w: no variation_id in predictions", ErrInvalidResponse))
	}
	return pr.Predictions[0].VariationID, nil
}
