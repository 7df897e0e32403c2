package db

import (
	"github.com/carter2099/best-bets/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Token{},
		&models.TokenMetricsHistory{},
		&models.Scan{},
		&models.ScanToken{},
		&models.SystemSetting{},
	)
}
