package model

import (
	"time"
)

// Bounty 救援悬赏（读模型快照，权威状态由账本事件日志重放得出）
type Bounty struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息（仅展示用，不参与任何不变量）
	Title         string `json:"title" gorm:"not null"`
	Description   string `json:"description" gorm:"type:text"`
	Location      string `json:"location"`
	OrganizerName string `json:"organizer_name"`
	ImageURL      string `json:"image_url"`

	// 募捐信息（金额为账本基础单位的整数）
	GoalAmount   int64 `json:"goal_amount" gorm:"not null"`
	RaisedAmount int64 `json:"raised_amount" gorm:"default:0"`

	// 状态
	Status BountyStatus `json:"status" gorm:"default:'Open'"`

	// 组织者信息（创建后不可变更，是资金的唯一接收方）
	OrganizerAddress string `json:"organizer_address" gorm:"not null;index"`

	// 证明信息
	ProofIpfsHash string `json:"proof_ipfs_hash"`

	// 关联
	Donations []Donation `json:"donations,omitempty" gorm:"foreignKey:BountyID"`
}

// BountyStatus 悬赏状态
type BountyStatus string

const (
	BountyStatusOpen         BountyStatus = "Open"         // 募捐中
	BountyStatusProofPending BountyStatus = "ProofPending" // 证明待审核
	BountyStatusCompleted    BountyStatus = "Completed"    // 已结算（终态）
)
