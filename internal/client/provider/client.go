package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/config"
	"github.com/carter2099/best-bets/internal/observability"
)

const maxErrorBody = 512

// Client is the shared HTTP plumbing for one external data provider.
type Client struct {
	name      string
	http      *resty.Client
	guard     *Guard
	logger    *zap.Logger
	retryWait time.Duration
	retries   int
}

type Option func(*options)

type options struct {
	apiKeyHeader string
	httpClient   *http.Client
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// WithAPIKeyHeader sends cfg.APIKey under header when the key is set.
func WithAPIKeyHeader(header string) Option {
	return func(o *options) { o.apiKeyHeader = header }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func New(name string, cfg config.ProviderConfig, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	rc := resty.New()
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	}
	rc.SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "best-bets/1.0")
	rc.JSONMarshal = json.Marshal
	rc.JSONUnmarshal = json.Unmarshal
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if o.apiKeyHeader != "" && cfg.APIKey != "" {
		rc.SetHeader(o.apiKeyHeader, cfg.APIKey)
	}
	return &Client{
		name:      name,
		http:      rc,
		guard:     NewGuard(name, cfg, o.logger, o.metrics),
		logger:    o.logger,
		retryWait: cfg.RateLimitWait,
		retries:   cfg.MaxRateLimitRetries,
	}
}

// Guard exposes the provider's limiter and breaker for status reporting.
func (c *Client) Guard() *Guard {
	return c.guard
}

// GetJSON fetches path and decodes a 200 body into out. A 429 is retried with
// exponential backoff starting at the configured wait, at most the configured
// number of times; after that the APIError (matching ErrRateLimited) is returned.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	call := func() error {
		return c.guard.Do(ctx, func() error { return c.get(ctx, path, out) })
	}
	if c.retries <= 0 || c.retryWait <= 0 {
		return call()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryWait
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = c.retryWait * 8
	eb.MaxElapsedTime = 0
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	op := func() error {
		err := call()
		if err == nil || errors.Is(err, ErrRateLimited) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		if c.logger != nil {
			c.logger.Warn("provider rate limited, backing off",
				zap.String("provider", c.name),
				zap.String("path", path),
				zap.Duration("wait", wait),
			)
		}
	}
	return backoff.RetryNotify(op, policy, notify)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &APIError{Provider: c.name, Status: resp.StatusCode(), Body: body}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s decode: %w", c.name, err)
	}
	return nil
}
