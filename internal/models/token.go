package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is one discovered mint. Snapshot columns hold the most recent analysis;
// Score stays nil until the first analysis cycle completes.
type Token struct {
	Address  string     `gorm:"primaryKey;type:varchar(64);comment:mint address"`
	Name     string     `gorm:"type:text;not null;default:''"`
	Symbol   string     `gorm:"type:varchar(50);not null;default:''"`
	Decimals int        `gorm:"not null;default:0"`
	ListedAt *time.Time `gorm:"type:timestamptz;comment:listing feed creation time"`

	Price          decimal.Decimal `gorm:"type:numeric(38,18);not null;default:0"`
	PriceChange24h float64         `gorm:"column:price_change_24h;type:double precision;not null;default:0;comment:24h change in percent"`
	Volume24h      decimal.Decimal `gorm:"column:volume_24h;type:numeric(30,6);not null;default:0"`
	MarketCap      decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`
	FDV            decimal.Decimal `gorm:"column:fdv;type:numeric(30,6);not null;default:0"`
	Liquidity      decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0;comment:usd"`
	HolderCount    int64           `gorm:"not null;default:0"`

	Score          *float64   `gorm:"type:double precision;index"`
	NeedsAnalysis  bool       `gorm:"not null;default:true;index"`
	IsNew          bool       `gorm:"not null;default:true"`
	Rank           *int       `gorm:"index"`
	LastAnalysisAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Token) TableName() string {
	return "tokens"
}
