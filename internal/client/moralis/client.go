// Package moralis sums USD liquidity across a token's pools.
package moralis

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/carter2099/best-bets/internal/client/provider"
	"github.com/carter2099/best-bets/internal/config"
)

type Pair struct {
	PairAddress  string           `json:"pairAddress"`
	ExchangeName string           `json:"exchangeName"`
	LiquidityUSD provider.Decimal `json:"liquidityUsd"`
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

type Client struct {
	base *provider.Client
}

func NewClient(cfg config.ProviderConfig, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithAPIKeyHeader("X-API-Key")}, opts...)
	return &Client{base: provider.New("liquidity", cfg, opts...)}
}

func (c *Client) Guard() *provider.Guard {
	return c.base.Guard()
}

func (c *Client) Pairs(ctx context.Context, address string) ([]Pair, error) {
	var out pairsResponse
	if err := c.base.GetJSON(ctx, "/token/mainnet/"+url.PathEscape(address)+"/pairs", &out); err != nil {
		return nil, err
	}
	return out.Pairs, nil
}

// Liquidity is the sum of liquidityUsd over every returned pair.
func (c *Client) Liquidity(ctx context.Context, address string) (decimal.Decimal, error) {
	pairs, err := c.Pairs(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range pairs {
		total = total.Add(p.LiquidityUSD.Decimal)
	}
	return total, nil
}
