package model

import (
	"time"
)

// LedgerEvent 账本事件，系统的权威记录（append-only，绝不改写）。
// Seq 严格递增，重放全量事件即可从零重建所有悬赏和捐款状态。
type LedgerEvent struct {
	Seq       uint64    `json:"seq" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`

	BountyID  uint64    `json:"bounty_id" gorm:"not null;index"`
	EventType EventType `json:"event_type" gorm:"not null"`
	TxHash    string    `json:"tx_hash" gorm:"not null;uniqueIndex"`
	Data      string    `json:"data" gorm:"type:text"`
}

// EventType 事件类型
type EventType string

const (
	EventTypeCreated        EventType = "Created"        // 悬赏创建
	EventTypeDonated        EventType = "Donated"        // 捐款入账
	EventTypeProofSubmitted EventType = "ProofSubmitted" // 证明提交
	EventTypeReleased       EventType = "Released"       // 审核放款/驳回
)

// CreatedData Created 事件负载
type CreatedData struct {
	Organizer     string `json:"organizer"`
	OrganizerName string `json:"organizer_name"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	ImageURL      string `json:"image_url"`
	GoalAmount    int64  `json:"goal_amount"`
}

// DonatedData Donated 事件负载
type DonatedData struct {
	Donor  string `json:"donor"`
	Amount int64  `json:"amount"`
}

// ProofSubmittedData ProofSubmitted 事件负载
type ProofSubmittedData struct {
	ProofIpfsHash string `json:"proof_ipfs_hash"`
}

// ReleasedData Released 事件负载。Verified=false 表示驳回，资金不动
type ReleasedData struct {
	Verifier string `json:"verifier"`
	Verified bool   `json:"verified"`
	Amount   int64  `json:"amount"`
}
