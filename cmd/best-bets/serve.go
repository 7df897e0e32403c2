package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/cache"
	cronrunner "github.com/carter2099/best-bets/internal/cron"
	"github.com/carter2099/best-bets/internal/db"
	"github.com/carter2099/best-bets/internal/handler"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/pipeline"
	gormrepository "github.com/carter2099/best-bets/internal/repository/gorm"
	"github.com/carter2099/best-bets/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the analysis pipeline and the daily scan schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.log.Sync()
		return serve(rt)
	},
}

func serve(rt *runtime) error {
	cfg, log := rt.cfg, rt.log

	conn, err := rt.openDB()
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if err := db.AutoMigrate(conn); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := gormrepository.New(conn.Gorm)
	settings := &service.SystemSettingsService{Repo: store}
	if err := settings.EnsureDefaultSwitches(ctx); err != nil {
		log.Warn("init default system switches failed", zap.Error(err))
	}

	rankCache := cache.New(cfg.Redis, 5*cfg.Pipeline.RankingInterval)
	defer rankCache.Close()

	prov := rt.buildProviders()
	supervisor := pipeline.NewSupervisor(log, rt.metrics,
		&pipeline.IngestionWorker{
			Repo:            store,
			Listing:         prov.listing,
			Interval:        cfg.Pipeline.IngestInterval,
			SymbolMaxLength: cfg.Pipeline.SymbolMaxLength,
			Logger:          log,
			Metrics:         rt.metrics,
		},
		&pipeline.AnalysisWorker{
			Repo:         store,
			Analyzer:     prov.analyzer,
			Idle:         cfg.Pipeline.AnalysisIdle,
			Throttle:     cfg.Pipeline.AnalysisThrottle,
			ErrorBackoff: cfg.Pipeline.AnalysisErrorBackoff,
			Logger:       log,
			Metrics:      rt.metrics,
		},
		&pipeline.RankingWorker{
			Repo:         store,
			Cache:        rankCache,
			TopK:         cfg.Pipeline.TopK,
			Interval:     cfg.Pipeline.RankingInterval,
			ErrorBackoff: cfg.Pipeline.RankingErrorBackoff,
			Logger:       log,
			Metrics:      rt.metrics,
		},
	)
	scans := &service.ScanService{
		Repo:     store,
		Listing:  prov.listing,
		Analyzer: prov.analyzer,
		Logger:   log,
		Metrics:  rt.metrics,
	}

	breakers := make([]handler.Breaker, 0, len(prov.guards))
	for _, g := range prov.guards {
		breakers = append(breakers, g)
	}

	engine := handler.NewEngine(cfg.App.Env, log,
		&handler.HealthHandler{
			DB:      handler.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, conn) }),
			Cache:   rankCache,
			Metrics: rt.metrics.Handler(),
		},
		&handler.TokensHandler{Repo: store, Cache: rankCache, TopK: cfg.Pipeline.TopK, Logger: log},
		&handler.ScansHandler{Scans: scans, TestLimit: cfg.Scan.TestLimit},
		&handler.PipelineHandler{Pipeline: supervisor, Pending: store, Breakers: breakers, BaseCtx: ctx, Logger: log},
		&handler.SettingsHandler{Repo: store, Settings: settings},
	)
	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runner := cronrunner.New(ctx, log)
	var dailyScanID cron.EntryID
	if cfg.Cron.Enabled {
		id, err := runner.Add("daily_scan", cfg.Cron.DailyScan, func(ctx context.Context) error {
			if !settings.IsEnabled(ctx, service.FeatureDailyScan, true) {
				return nil
			}
			_, err := scans.RunScan(ctx, models.ScanTypeDaily, cfg.Scan.DailyLimit)
			return err
		})
		if err != nil {
			log.Warn("cron register daily scan failed", zap.Error(err))
		}
		dailyScanID = id
	}
	runner.Start()
	defer runner.Stop()
	if dailyScanID != 0 {
		log.Info("daily scan scheduled", zap.Time("next", runner.Next(dailyScanID)))
	}

	if cfg.Pipeline.AutoStart && settings.IsEnabled(ctx, service.FeaturePipelineAutostart, true) {
		supervisor.Start(ctx)
	} else {
		log.Info("pipeline auto-start disabled; start it with POST /api/pipeline/start")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case serveErr = <-errCh:
		log.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := supervisor.Stop(shutdownCtx); err != nil {
		log.Warn("pipeline did not stop in time", zap.Error(err))
	}
	return serveErr
}
