package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TokenMetricsHistory is append-only; rows are never updated by the pipeline.
type TokenMetricsHistory struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	TokenAddress string `gorm:"type:varchar(64);not null;index:idx_history_token_time,priority:1"`

	Price          decimal.Decimal `gorm:"type:numeric(38,18);not null;default:0"`
	PriceChange24h float64         `gorm:"column:price_change_24h;type:double precision;not null;default:0"`
	Volume24h      decimal.Decimal `gorm:"column:volume_24h;type:numeric(30,6);not null;default:0"`
	MarketCap      decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`
	FDV            decimal.Decimal `gorm:"column:fdv;type:numeric(30,6);not null;default:0"`
	Liquidity      decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`
	HolderCount    int64           `gorm:"not null;default:0"`
	Score          float64         `gorm:"type:double precision;not null;default:0"`

	Outcome   string         `gorm:"type:varchar(20);not null;comment:no_pair|below_threshold|scored"`
	Breakdown datatypes.JSON `gorm:"type:jsonb;comment:weighted sub-scores"`

	CapturedAt time.Time `gorm:"type:timestamptz;not null;index:idx_history_token_time,priority:2"`
}

func (TokenMetricsHistory) TableName() string {
	return "token_metrics_history"
}
