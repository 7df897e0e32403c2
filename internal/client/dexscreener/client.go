// Package dexscreener reads trading pairs and reduces them to one market snapshot.
package dexscreener

import (
	"context"
	"errors"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/carter2099/best-bets/internal/client/provider"
	"github.com/carter2099/best-bets/internal/config"
)

// WrappedSOLMint is the native-asset quote token.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

var stableQuotes = map[string]struct{}{
	"USDC": {},
	"USDT": {},
}

type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type TxnCounts struct {
	Buys  int64 `json:"buys"`
	Sells int64 `json:"sells"`
}

type Pair struct {
	ChainID     string           `json:"chainId"`
	DexID       string           `json:"dexId"`
	PairAddress string           `json:"pairAddress"`
	BaseToken   TokenRef         `json:"baseToken"`
	QuoteToken  TokenRef         `json:"quoteToken"`
	PriceUSD    provider.Decimal `json:"priceUsd"`
	Volume      struct {
		H24 provider.Decimal `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Txns struct {
		H24 TxnCounts `json:"h24"`
	} `json:"txns"`
	MarketCap provider.Decimal `json:"marketCap"`
	FDV       provider.Decimal `json:"fdv"`
}

// Snapshot is the market state of the chosen pair.
type Snapshot struct {
	PairAddress    string
	Price          decimal.Decimal
	PriceChange24h float64
	Volume24h      decimal.Decimal
	MarketCap      decimal.Decimal
	FDV            decimal.Decimal
	Buys           int64
	Sells          int64
}

type Client struct {
	base *provider.Client
}

func NewClient(cfg config.ProviderConfig, opts ...provider.Option) *Client {
	return &Client{base: provider.New("quote", cfg, opts...)}
}

func (c *Client) Guard() *provider.Guard {
	return c.base.Guard()
}

func (c *Client) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	var out []Pair
	if err := c.base.GetJSON(ctx, "/token-pairs/v1/solana/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns nil, nil when the token has no pair quoted in SOL or a major stablecoin.
// A 404 is treated the same way.
func (c *Client) Snapshot(ctx context.Context, address string) (*Snapshot, error) {
	pairs, err := c.TokenPairs(ctx, address)
	if errors.Is(err, provider.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	best := BestPair(pairs)
	if best == nil {
		return nil, nil
	}
	return &Snapshot{
		PairAddress:    best.PairAddress,
		Price:          best.PriceUSD.Decimal,
		PriceChange24h: best.PriceChange.H24,
		Volume24h:      best.Volume.H24.Decimal,
		MarketCap:      best.MarketCap.Decimal,
		FDV:            best.FDV.Decimal,
		Buys:           best.Txns.H24.Buys,
		Sells:          best.Txns.H24.Sells,
	}, nil
}

// BestPair keeps pairs quoted in wrapped SOL, USDC or USDT and returns the one
// with the highest 24h volume. The first pair wins a volume tie.
func BestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		p := &pairs[i]
		if !qualifies(p.QuoteToken) {
			continue
		}
		if best == nil || p.Volume.H24.GreaterThan(best.Volume.H24.Decimal) {
			best = p
		}
	}
	return best
}

func qualifies(q TokenRef) bool {
	if q.Address == WrappedSOLMint {
		return true
	}
	_, ok := stableQuotes[q.Symbol]
	return ok
}
