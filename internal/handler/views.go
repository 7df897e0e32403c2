package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/carter2099/best-bets/internal/models"
)

type tokenView struct {
	Address        string          `json:"address"`
	Name           string          `json:"name"`
	Symbol         string          `json:"symbol"`
	Decimals       int             `json:"decimals"`
	ListedAt       *time.Time      `json:"listed_at,omitempty"`
	Price          decimal.Decimal `json:"price"`
	PriceChange24h float64         `json:"price_change_24h"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
	MarketCap      decimal.Decimal `json:"market_cap"`
	FDV            decimal.Decimal `json:"fdv"`
	Liquidity      decimal.Decimal `json:"liquidity"`
	HolderCount    int64           `json:"holder_count"`
	Score          *float64        `json:"score"`
	Rank           *int            `json:"rank"`
	NeedsAnalysis  bool            `json:"needs_analysis"`
	IsNew          bool            `json:"is_new"`
	LastAnalysisAt *time.Time      `json:"last_analysis_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toTokenView(t models.Token) tokenView {
	return tokenView{
		Address:        t.Address,
		Name:           t.Name,
		Symbol:         t.Symbol,
		Decimals:       t.Decimals,
		ListedAt:       t.ListedAt,
		Price:          t.Price,
		PriceChange24h: t.PriceChange24h,
		Volume24h:      t.Volume24h,
		MarketCap:      t.MarketCap,
		FDV:            t.FDV,
		Liquidity:      t.Liquidity,
		HolderCount:    t.HolderCount,
		Score:          t.Score,
		Rank:           t.Rank,
		NeedsAnalysis:  t.NeedsAnalysis,
		IsNew:          t.IsNew,
		LastAnalysisAt: t.LastAnalysisAt,
		CreatedAt:      t.CreatedAt,
	}
}

func toTokenViews(items []models.Token) []tokenView {
	out := make([]tokenView, 0, len(items))
	for _, t := range items {
		out = append(out, toTokenView(t))
	}
	return out
}

type historyView struct {
	Price          decimal.Decimal `json:"price"`
	PriceChange24h float64         `json:"price_change_24h"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
	MarketCap      decimal.Decimal `json:"market_cap"`
	FDV            decimal.Decimal `json:"fdv"`
	Liquidity      decimal.Decimal `json:"liquidity"`
	HolderCount    int64           `json:"holder_count"`
	Score          float64         `json:"score"`
	Outcome        string          `json:"outcome"`
	Breakdown      datatypes.JSON  `json:"breakdown,omitempty"`
	CapturedAt     time.Time       `json:"captured_at"`
}

func toHistoryViews(items []models.TokenMetricsHistory) []historyView {
	out := make([]historyView, 0, len(items))
	for _, h := range items {
		out = append(out, historyView{
			Price:          h.Price,
			PriceChange24h: h.PriceChange24h,
			Volume24h:      h.Volume24h,
			MarketCap:      h.MarketCap,
			FDV:            h.FDV,
			Liquidity:      h.Liquidity,
			HolderCount:    h.HolderCount,
			Score:          h.Score,
			Outcome:        h.Outcome,
			Breakdown:      h.Breakdown,
			CapturedAt:     h.CapturedAt,
		})
	}
	return out
}

type scanView struct {
	ID         uint64         `json:"id"`
	ScanType   string         `json:"scan_type"`
	Status     string         `json:"status"`
	TokenCount int            `json:"token_count"`
	Stats      datatypes.JSON `json:"stats,omitempty"`
	Error      *string        `json:"error,omitempty"`
	ScanDate   time.Time      `json:"scan_date"`
}

func toScanView(s models.Scan) scanView {
	return scanView{
		ID:         s.ID,
		ScanType:   s.ScanType,
		Status:     s.Status,
		TokenCount: s.TokenCount,
		Stats:      s.Stats,
		Error:      s.Error,
		ScanDate:   s.ScanDate,
	}
}

type scanTokenView struct {
	Rank           int             `json:"rank"`
	Address        string          `json:"address"`
	Name           string          `json:"name"`
	Symbol         string          `json:"symbol"`
	Price          decimal.Decimal `json:"price"`
	PriceChange24h float64         `json:"price_change_24h"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
	MarketCap      decimal.Decimal `json:"market_cap"`
	Liquidity      decimal.Decimal `json:"liquidity"`
	HolderCount    int64           `json:"holder_count"`
	Score          float64         `json:"score"`
}

func toScanTokenViews(items []models.ScanToken) []scanTokenView {
	out := make([]scanTokenView, 0, len(items))
	for _, t := range items {
		out = append(out, scanTokenView{
			Rank:           t.Rank,
			Address:        t.Address,
			Name:           t.Name,
			Symbol:         t.Symbol,
			Price:          t.Price,
			PriceChange24h: t.PriceChange24h,
			Volume24h:      t.Volume24h,
			MarketCap:      t.MarketCap,
			Liquidity:      t.Liquidity,
			HolderCount:    t.HolderCount,
			Score:          t.Score,
		})
	}
	return out
}
