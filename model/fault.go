package model

import (
	"time"

	"gorm.io/datatypes"
)

// ScriptFault records one script content error: the script gave up and
// returned to the map instead of finishing.
type ScriptFault struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Script    string         `gorm:"index:idx_fault_script;size:64;not null" json:"script"`
	Section   string         `gorm:"size:64" json:"section"`
	Index     int            `json:"index"`
	Reason    string         `gorm:"type:text" json:"reason"`
	Fields    datatypes.JSON `json:"fields"`
	CreatedAt time.Time      `gorm:"index:idx_fault_created;autoCreateTime:milli" json:"created_at"`
}
