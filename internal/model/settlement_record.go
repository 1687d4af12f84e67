package model

import (
	"time"
)

// SettlementRecord 结算记录，每个悬赏最多一条（放款一次性完成）
type SettlementRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	BountyID         uint64 `json:"bounty_id" gorm:"not null;uniqueIndex"`
	OrganizerAddress string `json:"organizer_address" gorm:"not null"`
	Amount           int64  `json:"amount" gorm:"not null"`
	TxHash           string `json:"tx_hash" gorm:"uniqueIndex"`

	// 关联
	Bounty Bounty `json:"bounty,omitempty" gorm:"foreignKey:BountyID"`
}
