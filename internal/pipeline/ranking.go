package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/logger"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/observability"
	"github.com/carter2099/best-bets/internal/repository"
)

const WorkerRanking = "ranking"

// RankCache receives the ordered top K after every successful ranking cycle.
type RankCache interface {
	StoreTop(ctx context.Context, items []models.Token) error
}

// RankingWorker recomputes the top K ranks from scratch every cycle.
type RankingWorker struct {
	Repo         repository.TokenRepository
	Cache        RankCache
	TopK         int
	Interval     time.Duration
	ErrorBackoff time.Duration
	Logger       *zap.Logger
	Metrics      *observability.Metrics

	stats stats
}

func (w *RankingWorker) Name() string { return WorkerRanking }

func (w *RankingWorker) Status() WorkerStatus { return w.stats.snapshot(WorkerRanking) }

func (w *RankingWorker) Run(ctx context.Context) error {
	log := logger.OrNop(w.Logger).With(zap.String("worker", WorkerRanking))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		ranked, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.stats.record(err)
		wait := w.Interval
		if err != nil {
			w.Metrics.ObserveCycle(WorkerRanking, "error", time.Since(start))
			log.Warn("ranking cycle failed, previous ranks stay in effect", zap.Error(err))
			wait = w.ErrorBackoff
		} else {
			w.Metrics.ObserveCycle(WorkerRanking, "ok", time.Since(start))
			log.Debug("ranks recomputed", zap.Int64("ranked", ranked))
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// RunOnce recomputes ranks and refreshes the cache. Cache failures are logged only.
func (w *RankingWorker) RunOnce(ctx context.Context) (int64, error) {
	var ranked int64
	err := safeCycle(func() error {
		n, err := w.Repo.RecomputeRanks(ctx, w.topK())
		if err != nil {
			return err
		}
		ranked = n
		w.Metrics.SetRanked(n)
		w.refreshCache(ctx)
		return nil
	})
	return ranked, err
}

func (w *RankingWorker) refreshCache(ctx context.Context) {
	if w.Cache == nil {
		return
	}
	top, err := w.Repo.ListRankedTokens(ctx, w.topK())
	if err == nil {
		err = w.Cache.StoreTop(ctx, top)
	}
	if err != nil && w.Logger != nil {
		w.Logger.Warn("ranked cache refresh failed", zap.Error(err))
	}
}

func (w *RankingWorker) topK() int {
	if w.TopK > 0 {
		return w.TopK
	}
	return 20
}
