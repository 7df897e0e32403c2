// Package analyzer runs the per-token analysis shared by the pipeline and one-shot scans.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carter2099/best-bets/internal/client/dexscreener"
	"github.com/carter2099/best-bets/internal/client/provider"
	"github.com/carter2099/best-bets/internal/config"
	"github.com/carter2099/best-bets/internal/repository"
	"github.com/carter2099/best-bets/internal/scoring"
)

const (
	OutcomeNoPair         = "no_pair"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeScored         = "scored"
)

type QuoteSource interface {
	Snapshot(ctx context.Context, address string) (*dexscreener.Snapshot, error)
}

type LiquiditySource interface {
	Liquidity(ctx context.Context, address string) (decimal.Decimal, error)
}

type HolderSource interface {
	Holders(ctx context.Context, address string) (int64, error)
}

type Analyzer struct {
	Quotes    QuoteSource
	Liquidity LiquiditySource
	Holders   HolderSource
	Config    config.AnalyzerConfig
	Weights   scoring.Weights
	Logger    *zap.Logger
}

func New(quotes QuoteSource, liquidity LiquiditySource, holders HolderSource, cfg config.AnalyzerConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		Quotes:    quotes,
		Liquidity: liquidity,
		Holders:   holders,
		Config:    cfg,
		Weights:   scoring.DefaultWeights,
		Logger:    logger,
	}
}

type Result struct {
	Address        string
	Outcome        string
	Price          decimal.Decimal
	PriceChange24h float64
	Volume24h      decimal.Decimal
	MarketCap      decimal.Decimal
	FDV            decimal.Decimal
	Liquidity      decimal.Decimal
	HolderCount    int64
	Buys           int64
	Sells          int64
	Score          float64
	Breakdown      *scoring.Breakdown
}

// Update converts the result into the store write for one analysis cycle.
func (r Result) Update(at time.Time) repository.AnalysisUpdate {
	var breakdown []byte
	if r.Breakdown != nil {
		breakdown, _ = json.Marshal(r.Breakdown)
	}
	return repository.AnalysisUpdate{
		Address:        r.Address,
		Price:          r.Price,
		PriceChange24h: r.PriceChange24h,
		Volume24h:      r.Volume24h,
		MarketCap:      r.MarketCap,
		FDV:            r.FDV,
		Liquidity:      r.Liquidity,
		HolderCount:    r.HolderCount,
		Score:          r.Score,
		Outcome:        r.Outcome,
		Breakdown:      breakdown,
		AnalyzedAt:     at,
	}
}

// Analyze fetches the quote snapshot, applies the market cap and volume gate,
// fetches liquidity and holders concurrently and scores the token.
//
// Errors are returned only when the quote provider is rate limited, its breaker
// is open, or ctx is done; any other quote failure degrades to a zero snapshot.
// Liquidity and holder failures degrade that value to 0.
func (a *Analyzer) Analyze(ctx context.Context, address string) (Result, error) {
	res := Result{Address: address, Outcome: OutcomeNoPair}

	snap, err := a.Quotes.Snapshot(ctx, address)
	if err != nil {
		if retryable(ctx, err) {
			return Result{}, err
		}
		a.logWarn("quote fetch failed, storing zero snapshot", err, zap.String("address", address))
		snap = nil
	}
	if snap == nil {
		return res, nil
	}

	res.Price = snap.Price
	res.PriceChange24h = snap.PriceChange24h
	res.Volume24h = snap.Volume24h
	res.MarketCap = snap.MarketCap
	res.FDV = snap.FDV
	res.Buys = snap.Buys
	res.Sells = snap.Sells

	if a.belowThreshold(snap) {
		res.Outcome = OutcomeBelowThreshold
		return res, nil
	}

	var (
		g         errgroup.Group
		liquidity = decimal.Zero
		holders   int64
	)
	if a.Liquidity != nil {
		g.Go(func() error {
			v, err := a.Liquidity.Liquidity(ctx, address)
			if err != nil {
				a.logWarn("liquidity fetch failed, using 0", err, zap.String("address", address))
				return nil
			}
			liquidity = v
			return nil
		})
	}
	if a.Holders != nil {
		g.Go(func() error {
			v, err := a.Holders.Holders(ctx, address)
			if err != nil {
				a.logWarn("holder fetch failed, using 0", err, zap.String("address", address))
				return nil
			}
			holders = v
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res.Liquidity = liquidity
	res.HolderCount = holders
	breakdown := a.Weights.Score(scoring.Input{
		Volume24h:      res.Volume24h.InexactFloat64(),
		Liquidity:      liquidity.InexactFloat64(),
		HolderCount:    holders,
		Buys:           res.Buys,
		Sells:          res.Sells,
		PriceChange24h: res.PriceChange24h,
	})
	res.Score = breakdown.Score
	res.Breakdown = &breakdown
	res.Outcome = OutcomeScored
	return res, nil
}

func (a *Analyzer) belowThreshold(snap *dexscreener.Snapshot) bool {
	minCap := decimal.NewFromFloat(a.Config.MinMarketCap)
	minVol := decimal.NewFromFloat(a.Config.MinVolume24h)
	return snap.MarketCap.LessThan(minCap) || snap.Volume24h.LessThan(minVol)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, provider.ErrRateLimited) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (a *Analyzer) logWarn(msg string, err error, fields ...zap.Field) {
	if a.Logger == nil {
		return
	}
	fields = append(fields, zap.Error(err))
	a.Logger.Warn(msg, fields...)
}
