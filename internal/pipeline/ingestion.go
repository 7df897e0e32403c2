package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/client/jupiter"
	"github.com/carter2099/best-bets/internal/logger"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/observability"
	"github.com/carter2099/best-bets/internal/repository"
	"github.com/carter2099/best-bets/internal/solana"
)

const WorkerIngestion = "ingestion"

type Listing interface {
	NewTokens(ctx context.Context) ([]jupiter.Token, error)
}

// IngestionWorker inserts unseen listings as pending analysis.
type IngestionWorker struct {
	Repo            repository.TokenRepository
	Listing         Listing
	Interval        time.Duration
	SymbolMaxLength int
	Logger          *zap.Logger
	Metrics         *observability.Metrics

	stats stats
}

func (w *IngestionWorker) Name() string { return WorkerIngestion }

func (w *IngestionWorker) Status() WorkerStatus { return w.stats.snapshot(WorkerIngestion) }

func (w *IngestionWorker) Run(ctx context.Context) error {
	log := logger.OrNop(w.Logger).With(zap.String("worker", WorkerIngestion))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		inserted, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.stats.record(err)
		if err != nil {
			w.Metrics.ObserveCycle(WorkerIngestion, "error", time.Since(start))
			log.Warn("listing sync failed", zap.Error(err))
		} else {
			w.Metrics.ObserveCycle(WorkerIngestion, "ok", time.Since(start))
			log.Info("listing sync complete", zap.Int64("inserted", inserted))
		}
		if err := sleepCtx(ctx, w.Interval); err != nil {
			return err
		}
	}
}

// RunOnce fetches the whole listing and inserts addresses not yet stored.
func (w *IngestionWorker) RunOnce(ctx context.Context) (int64, error) {
	var inserted int64
	err := safeCycle(func() error {
		listed, err := w.Listing.NewTokens(ctx)
		if err != nil {
			return err
		}
		items := w.toModels(listed)
		if len(items) == 0 {
			return nil
		}
		inserted, err = w.Repo.InsertTokensIfAbsent(ctx, items)
		return err
	})
	w.Metrics.AddIngested(inserted)
	return inserted, err
}

func (w *IngestionWorker) toModels(listed []jupiter.Token) []models.Token {
	items := make([]models.Token, 0, len(listed))
	seen := make(map[string]struct{}, len(listed))
	skipped := 0
	for _, t := range listed {
		addr := strings.TrimSpace(t.Mint)
		if !solana.IsValidAddress(addr) {
			skipped++
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		items = append(items, models.Token{
			Address:       addr,
			Name:          strings.TrimSpace(t.Name),
			Symbol:        truncateRunes(strings.TrimSpace(t.Symbol), w.symbolMax()),
			Decimals:      t.Decimals,
			ListedAt:      t.CreatedAt.Ptr(),
			NeedsAnalysis: true,
			IsNew:         true,
		})
	}
	if skipped > 0 && w.Logger != nil {
		w.Logger.Debug("skipped invalid mint addresses", zap.Int("count", skipped))
	}
	return items
}

func (w *IngestionWorker) symbolMax() int {
	if w.SymbolMaxLength > 0 {
		return w.SymbolMaxLength
	}
	return 50
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
