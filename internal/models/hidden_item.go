package models

import "time"

// HiddenItem is one entry of the persisted exclusion set. Once a row id is
// here it never reappears in the visible list, however stale the upstream
// snapshots get.
type HiddenItem struct {
	ItemID   string    `gorm:"primaryKey;type:text"`
	HiddenAt time.Time `gorm:"type:timestamptz;not null"`
}
