package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carter2099/best-bets/internal/models"
)

// TokenRepository is the shared token store read and written by the pipeline workers.
type TokenRepository interface {
	// InsertTokensIfAbsent inserts unseen addresses and leaves existing rows untouched.
	InsertTokensIfAbsent(ctx context.Context, items []models.Token) (int64, error)
	// NextTokenForAnalysis returns the highest priority pending token, or nil when none is pending.
	NextTokenForAnalysis(ctx context.Context) (*models.Token, error)
	// SaveAnalysis appends a history row and updates the token row atomically.
	SaveAnalysis(ctx context.Context, update AnalysisUpdate) error
	// RequeueTokens flags existing tokens for another analysis pass.
	RequeueTokens(ctx context.Context, addresses []string) (int64, error)
	// RecomputeRanks assigns ranks 1..k by score and clears every other rank.
	RecomputeRanks(ctx context.Context, k int) (int64, error)

	ListRankedTokens(ctx context.Context, limit int) ([]models.Token, error)
	ListTokens(ctx context.Context, params ListTokensParams) ([]models.Token, error)
	CountTokens(ctx context.Context, params ListTokensParams) (int64, error)
	// CountPendingTokens counts rows still flagged needs_analysis.
	CountPendingTokens(ctx context.Context) (int64, error)
	GetToken(ctx context.Context, address string) (*models.Token, error)
	ListTokenHistory(ctx context.Context, address string, limit int) ([]models.TokenMetricsHistory, error)
}

type ScanRepository interface {
	// CreateScanWithTokens stores the scan and its ranked tokens in one transaction.
	CreateScanWithTokens(ctx context.Context, scan *models.Scan, items []models.ScanToken) error
	ListScans(ctx context.Context, params ListScansParams) ([]models.Scan, error)
	GetScan(ctx context.Context, id uint64) (*models.Scan, error)
	LatestScan(ctx context.Context, scanType string) (*models.Scan, error)
	ListScanTokens(ctx context.Context, scanID uint64) ([]models.ScanToken, error)
	DeleteScansByType(ctx context.Context, scanType string) (int64, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

type Repository interface {
	TokenRepository
	ScanRepository
	SettingsRepository
}

// AnalysisUpdate is the outcome of one analysis cycle for one token.
type AnalysisUpdate struct {
	Address        string
	Price          decimal.Decimal
	PriceChange24h float64
	Volume24h      decimal.Decimal
	MarketCap      decimal.Decimal
	FDV            decimal.Decimal
	Liquidity      decimal.Decimal
	HolderCount    int64
	Score          float64
	Outcome        string
	Breakdown      []byte
	AnalyzedAt     time.Time
}

// History builds the append-only record for the update.
func (u AnalysisUpdate) History() models.TokenMetricsHistory {
	return models.TokenMetricsHistory{
		TokenAddress:   u.Address,
		Price:          u.Price,
		PriceChange24h: u.PriceChange24h,
		Volume24h:      u.Volume24h,
		MarketCap:      u.MarketCap,
		FDV:            u.FDV,
		Liquidity:      u.Liquidity,
		HolderCount:    u.HolderCount,
		Score:          u.Score,
		Outcome:        u.Outcome,
		Breakdown:      u.Breakdown,
		CapturedAt:     u.AnalyzedAt,
	}
}

type ListTokensParams struct {
	Limit         int
	Offset        int
	NeedsAnalysis *bool
	Ranked        *bool
	Search        *string
	OrderBy       string
	Asc           *bool
}

type ListScansParams struct {
	Limit    int
	Offset   int
	ScanType *string
}

type ListSystemSettingsParams struct {
	Limit  int
	Offset int
	Prefix *string
}

// TokenOrderColumns are the columns ListTokens may sort by.
var TokenOrderColumns = map[string]struct{}{
	"score":            {},
	"rank":             {},
	"market_cap":       {},
	"volume_24h":       {},
	"liquidity":        {},
	"holder_count":     {},
	"price_change_24h": {},
	"created_at":       {},
	"last_analysis_at": {},
}
