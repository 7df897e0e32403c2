package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/carter2099/best-bets/internal/analyzer"
	"github.com/carter2099/best-bets/internal/client/jupiter"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/observability"
	"github.com/carter2099/best-bets/internal/repository"
	"github.com/carter2099/best-bets/internal/solana"
)

var ErrInvalidScanType = errors.New("scan type must be daily or test")

type ScanListing interface {
	NewTokens(ctx context.Context) ([]jupiter.Token, error)
}

type ScanAnalyzer interface {
	Analyze(ctx context.Context, address string) (analyzer.Result, error)
}

// ScanStats is stored on the scan row.
type ScanStats struct {
	Listed         int `json:"listed"`
	Analyzed       int `json:"analyzed"`
	Scored         int `json:"scored"`
	BelowThreshold int `json:"below_threshold"`
	NoPair         int `json:"no_pair"`
	Failed         int `json:"failed"`
}

// ScanService runs one-shot scans over the listing feed. Scans never touch the
// pipeline's token flags.
type ScanService struct {
	Repo     repository.ScanRepository
	Listing  ScanListing
	Analyzer ScanAnalyzer
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Now      func() time.Time
}

type ScanResult struct {
	Scan   models.Scan
	Tokens []models.ScanToken
}

func (s *ScanService) RunScan(ctx context.Context, scanType string, limit int) (*ScanResult, error) {
	scanType = strings.ToLower(strings.TrimSpace(scanType))
	if scanType != models.ScanTypeDaily && scanType != models.ScanTypeTest {
		return nil, ErrInvalidScanType
	}
	if limit <= 0 {
		return nil, fmt.Errorf("scan limit must be positive, got %d", limit)
	}
	started := s.now()

	listed, err := s.Listing.NewTokens(ctx)
	if err != nil {
		s.recordFailure(ctx, scanType, started, ScanStats{}, err)
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	candidates := scanCandidates(listed, limit)
	stats := ScanStats{Listed: len(listed)}

	items := make([]models.ScanToken, 0, len(candidates))
	for _, t := range candidates {
		res, err := s.Analyzer.Analyze(ctx, t.Mint)
		if err != nil {
			if ctx.Err() != nil {
				s.recordFailure(context.WithoutCancel(ctx), scanType, started, stats, ctx.Err())
				return nil, ctx.Err()
			}
			stats.Failed++
			if s.Logger != nil {
				s.Logger.Warn("scan analysis failed", zap.String("address", t.Mint), zap.Error(err))
			}
			continue
		}
		stats.Analyzed++
		switch res.Outcome {
		case analyzer.OutcomeScored:
			stats.Scored++
		case analyzer.OutcomeBelowThreshold:
			stats.BelowThreshold++
		default:
			stats.NoPair++
		}
		items = append(items, scanToken(t, res))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Address < items[j].Address
	})
	for i := range items {
		items[i].Rank = i + 1
	}

	scan := models.Scan{
		ScanType:   scanType,
		Status:     models.ScanStatusCompleted,
		TokenCount: len(items),
		Stats:      encodeStats(stats),
		ScanDate:   started,
	}
	if err := s.Repo.CreateScanWithTokens(ctx, &scan, items); err != nil {
		s.Metrics.ObserveScan(scanType, models.ScanStatusFailed)
		return nil, fmt.Errorf("store scan: %w", err)
	}
	s.Metrics.ObserveScan(scanType, models.ScanStatusCompleted)
	if s.Logger != nil {
		s.Logger.Info("scan complete",
			zap.Uint64("scan_id", scan.ID),
			zap.String("type", scanType),
			zap.Int("tokens", len(items)),
			zap.Int("failed", stats.Failed),
		)
	}
	return &ScanResult{Scan: scan, Tokens: items}, nil
}

func (s *ScanService) ListScans(ctx context.Context, params repository.ListScansParams) ([]models.Scan, error) {
	return s.Repo.ListScans(ctx, params)
}

// ScanTokens returns repository.ErrNotFound when the scan does not exist.
func (s *ScanService) ScanTokens(ctx context.Context, scanID uint64) ([]models.ScanToken, error) {
	scan, err := s.Repo.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, repository.ErrNotFound
	}
	return s.Repo.ListScanTokens(ctx, scanID)
}

func (s *ScanService) LatestScan(ctx context.Context, scanType string) (*models.Scan, error) {
	return s.Repo.LatestScan(ctx, scanType)
}

func (s *ScanService) ClearTestScans(ctx context.Context) (int64, error) {
	return s.Repo.DeleteScansByType(ctx, models.ScanTypeTest)
}

func (s *ScanService) recordFailure(ctx context.Context, scanType string, started time.Time, stats ScanStats, cause error) {
	s.Metrics.ObserveScan(scanType, models.ScanStatusFailed)
	msg := cause.Error()
	scan := models.Scan{
		ScanType: scanType,
		Status:   models.ScanStatusFailed,
		Stats:    encodeStats(stats),
		Error:    &msg,
		ScanDate: started,
	}
	if err := s.Repo.CreateScanWithTokens(ctx, &scan, nil); err != nil && s.Logger != nil {
		s.Logger.Warn("record failed scan", zap.Error(err))
	}
}

func (s *ScanService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func scanCandidates(listed []jupiter.Token, limit int) []jupiter.Token {
	out := make([]jupiter.Token, 0, min(limit, len(listed)))
	seen := make(map[string]struct{}, len(listed))
	for _, t := range listed {
		if len(out) == limit {
			break
		}
		t.Mint = strings.TrimSpace(t.Mint)
		if !solana.IsValidAddress(t.Mint) {
			continue
		}
		if _, dup := seen[t.Mint]; dup {
			continue
		}
		seen[t.Mint] = struct{}{}
		out = append(out, t)
	}
	return out
}

func scanToken(t jupiter.Token, res analyzer.Result) models.ScanToken {
	symbol := []rune(strings.TrimSpace(t.Symbol))
	if len(symbol) > 50 {
		symbol = symbol[:50]
	}
	return models.ScanToken{
		Address:        t.Mint,
		Name:           strings.TrimSpace(t.Name),
		Symbol:         string(symbol),
		Price:          res.Price,
		PriceChange24h: res.PriceChange24h,
		Volume24h:      res.Volume24h,
		MarketCap:      res.MarketCap,
		FDV:            res.FDV,
		Liquidity:      res.Liquidity,
		HolderCount:    res.HolderCount,
		Score:          res.Score,
	}
}

func encodeStats(stats ScanStats) datatypes.JSON {
	raw, _ := json.Marshal(stats)
	return datatypes.JSON(raw)
}
