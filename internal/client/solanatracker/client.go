// Package solanatracker reads holder counts.
package solanatracker

import (
	"context"
	"net/url"
	"time"

	"github.com/carter2099/best-bets/internal/client/provider"
	"github.com/carter2099/best-bets/internal/config"
)

type Account struct {
	Wallet string  `json:"wallet"`
	Amount float64 `json:"amount"`
}

type holdersResponse struct {
	Total    int64     `json:"total"`
	Accounts []Account `json:"accounts"`
}

type Client struct {
	base  *provider.Client
	delay time.Duration
}

// NewClient pauses for delay after every successful call.
func NewClient(cfg config.ProviderConfig, delay time.Duration, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithAPIKeyHeader("x-api-key")}, opts...)
	return &Client{base: provider.New("holders", cfg, opts...), delay: delay}
}

func (c *Client) Guard() *provider.Guard {
	return c.base.Guard()
}

func (c *Client) Holders(ctx context.Context, address string) (int64, error) {
	var out holdersResponse
	if err := c.base.GetJSON(ctx, "/tokens/"+url.PathEscape(address)+"/holders", &out); err != nil {
		return 0, err
	}
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return out.Total, ctx.Err()
		case <-timer.C:
		}
	}
	return out.Total, nil
}
