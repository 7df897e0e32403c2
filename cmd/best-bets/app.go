package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/analyzer"
	"github.com/carter2099/best-bets/internal/client/dexscreener"
	"github.com/carter2099/best-bets/internal/client/jupiter"
	"github.com/carter2099/best-bets/internal/client/moralis"
	"github.com/carter2099/best-bets/internal/client/provider"
	"github.com/carter2099/best-bets/internal/client/solanatracker"
	"github.com/carter2099/best-bets/internal/config"
	"github.com/carter2099/best-bets/internal/db"
	"github.com/carter2099/best-bets/internal/logger"
	"github.com/carter2099/best-bets/internal/observability"
)

type runtime struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *observability.Metrics
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath, envOnly)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &runtime{cfg: cfg, log: log, metrics: observability.NewMetrics(reg)}, nil
}

func (rt *runtime) openDB() (*db.DB, error) {
	conn, err := db.Open(rt.cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.SetTimezone(conn, rt.cfg.DB.Timezone); err != nil {
		rt.log.Warn("failed to set timezone", zap.Error(err))
	}
	return conn, nil
}

type providers struct {
	listing  *jupiter.Client
	analyzer *analyzer.Analyzer
	guards   []*provider.Guard
}

func (rt *runtime) buildProviders() providers {
	p := rt.cfg.Providers
	opts := func(c config.ProviderConfig) []provider.Option {
		return []provider.Option{
			provider.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
			provider.WithLogger(rt.log),
			provider.WithMetrics(rt.metrics),
		}
	}
	quotes := dexscreener.NewClient(p.Quote, opts(p.Quote)...)
	liquidity := moralis.NewClient(p.Liquidity, opts(p.Liquidity)...)
	holders := solanatracker.NewClient(p.Holders, rt.cfg.Analyzer.HolderCallDelay, opts(p.Holders)...)
	listing := jupiter.NewClient(p.Listing, opts(p.Listing)...)
	return providers{
		listing:  listing,
		analyzer: analyzer.New(quotes, liquidity, holders, rt.cfg.Analyzer, rt.log),
		guards:   []*provider.Guard{listing.Guard(), quotes.Guard(), liquidity.Guard(), holders.Guard()},
	}
}
