// Package jupiter reads the newly listed token feed.
package jupiter

import (
	"context"

	"github.com/carter2099/best-bets/internal/client/provider"
	"github.com/carter2099/best-bets/internal/config"
)

const newTokensPath = "/tokens/v1/new"

type Token struct {
	Mint      string             `json:"mint"`
	Name      string             `json:"name"`
	Symbol    string             `json:"symbol"`
	CreatedAt provider.Timestamp `json:"created_at"`
	Decimals  int                `json:"decimals"`
}

type Client struct {
	base *provider.Client
}

func NewClient(cfg config.ProviderConfig, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithAPIKeyHeader("x-api-key")}, opts...)
	return &Client{base: provider.New("listing", cfg, opts...)}
}

func (c *Client) Guard() *provider.Guard {
	return c.base.Guard()
}

// NewTokens returns the whole current feed; the feed keeps no cursor.
func (c *Client) NewTokens(ctx context.Context) ([]Token, error) {
	var out []Token
	if err := c.base.GetJSON(ctx, newTokensPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}
