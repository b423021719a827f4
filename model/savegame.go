package model

import (
	"time"

	"gorm.io/datatypes"
)

// SaveGame is one save slot. Data holds the versioned save envelope.
type SaveGame struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Slot      string         `gorm:"uniqueIndex:idx_save_slot;size:32;not null" json:"slot"`
	Version   int            `gorm:"not null" json:"version"`
	Money     int64          `json:"money"`
	Location  string         `gorm:"size:32" json:"location"`
	Talking   bool           `json:"talking"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (SaveGame) TableName() string { return "save_games" }
