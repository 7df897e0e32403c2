package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ScanTypeDaily = "daily"
	ScanTypeTest  = "test"

	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// Scan is a one-shot run over the listing feed, independent of the pipeline.
type Scan struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	ScanType   string         `gorm:"type:varchar(10);not null;index"`
	Status     string         `gorm:"type:varchar(20);not null"`
	TokenCount int            `gorm:"not null;default:0"`
	Stats      datatypes.JSON `gorm:"type:jsonb"`
	Error      *string        `gorm:"type:text"`
	ScanDate   time.Time      `gorm:"type:timestamptz;not null;index"`
}

func (Scan) TableName() string {
	return "scans"
}

type ScanToken struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	ScanID uint64 `gorm:"not null;index:idx_scan_tokens_scan_rank,priority:1"`
	Rank   int    `gorm:"not null;index:idx_scan_tokens_scan_rank,priority:2"`

	Address        string          `gorm:"type:varchar(64);not null"`
	Name           string          `gorm:"type:text;not null;default:''"`
	Symbol         string          `gorm:"type:varchar(50);not null;default:''"`
	Price          decimal.Decimal `gorm:"type:numeric(38,18);not null;default:0"`
	PriceChange24h float64         `gorm:"column:price_change_24h;type:double precision;not null;default:0"`
	Volume24h      decimal.Decimal `gorm:"column:volume_24h;type:numeric(30,6);not null;default:0"`
	MarketCap      decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`
	FDV            decimal.Decimal `gorm:"column:fdv;type:numeric(30,6);not null;default:0"`
	Liquidity      decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`
	HolderCount    int64           `gorm:"not null;default:0"`
	Score          float64         `gorm:"type:double precision;not null;default:0"`
}

func (ScanToken) TableName() string {
	return "scan_tokens"
}
