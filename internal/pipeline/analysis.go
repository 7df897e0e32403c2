package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/analyzer"
	"github.com/carter2099/best-bets/internal/logger"
	"github.com/carter2099/best-bets/internal/observability"
	"github.com/carter2099/best-bets/internal/repository"
)

const WorkerAnalysis = "analysis"

type TokenAnalyzer interface {
	Analyze(ctx context.Context, address string) (analyzer.Result, error)
}

// AnalysisWorker analyses one pending token per cycle, highest priority first.
type AnalysisWorker struct {
	Repo         repository.TokenRepository
	Analyzer     TokenAnalyzer
	Idle         time.Duration
	Throttle     time.Duration
	ErrorBackoff time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
	Metrics      *observability.Metrics

	stats stats
	sleep func(ctx context.Context, d time.Duration) error
}

func (w *AnalysisWorker) Name() string { return WorkerAnalysis }

func (w *AnalysisWorker) Status() WorkerStatus { return w.stats.snapshot(WorkerAnalysis) }

func (w *AnalysisWorker) Run(ctx context.Context) error {
	log := logger.OrNop(w.Logger).With(zap.String("worker", WorkerAnalysis))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		analysed, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var wait time.Duration
		switch {
		case err != nil:
			w.stats.record(err)
			w.Metrics.ObserveCycle(WorkerAnalysis, "error", time.Since(start))
			log.Warn("analysis cycle failed", zap.Error(err))
			wait = w.ErrorBackoff
		case !analysed:
			// idle polls are not counted as cycles
			w.Metrics.ObserveCycle(WorkerAnalysis, "idle", time.Since(start))
			wait = w.Idle
		default:
			w.stats.record(nil)
			w.Metrics.ObserveCycle(WorkerAnalysis, "ok", time.Since(start))
			wait = w.Throttle
		}
		sleep := w.sleep
		if sleep == nil {
			sleep = sleepCtx
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RunOnce analyses the highest priority pending token. It reports false when
// nothing is pending. On error the token keeps needs_analysis and its
// last-analysis time is left untouched.
func (w *AnalysisWorker) RunOnce(ctx context.Context) (bool, error) {
	analysed := false
	err := safeCycle(func() error {
		token, err := w.Repo.NextTokenForAnalysis(ctx)
		if err != nil || token == nil {
			return err
		}
		res, err := w.Analyzer.Analyze(ctx, token.Address)
		if err != nil {
			return err
		}

		at := w.now()
		if token.LastAnalysisAt != nil && !at.After(*token.LastAnalysisAt) {
			at = token.LastAnalysisAt.Add(time.Microsecond)
		}
		if err := w.Repo.SaveAnalysis(ctx, res.Update(at)); err != nil {
			return err
		}
		analysed = true
		w.Metrics.ObserveAnalysis(res.Outcome)
		if w.Logger != nil {
			w.Logger.Info("token analysed",
				zap.String("address", token.Address),
				zap.String("symbol", token.Symbol),
				zap.String("outcome", res.Outcome),
				zap.Float64("score", res.Score),
			)
		}
		return nil
	})
	return analysed, err
}

// now truncates to microseconds to match timestamptz precision.
func (w *AnalysisWorker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC().Truncate(time.Microsecond)
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}
