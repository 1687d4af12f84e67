package model

import (
	"time"
)

// Donation 捐款记录，一经接受不可修改、不可删除
type Donation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	BountyID     uint64 `json:"bounty_id" gorm:"not null;index"`
	DonorAddress string `json:"donor_address" gorm:"not null;index"`
	Amount       int64  `json:"amount" gorm:"not null"`
	TxHash       string `json:"tx_hash" gorm:"uniqueIndex"`

	// 关联
	Bounty Bounty `json:"bounty,omitempty" gorm:"foreignKey:BountyID"`
}
