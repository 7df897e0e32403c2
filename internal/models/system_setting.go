package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting holds operator switches that must survive restarts.
type SystemSetting struct {
	ID    uint64         `gorm:"primaryKey;autoIncrement"`
	Key   string         `gorm:"type:varchar(120);not null;uniqueIndex"`
	Value datatypes.JSON `gorm:"type:jsonb;not null"`

	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
