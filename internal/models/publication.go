package models

import (
	"time"

	"gorm.io/datatypes"
)

// Publication journals every push of a winning trade to the external
// channel, keyed by the opaque reference the channel returned.
type Publication struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	TradeID    string         `gorm:"type:text;not null;index"`
	Title      string         `gorm:"type:text"`
	ChannelRef string         `gorm:"type:text"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}
