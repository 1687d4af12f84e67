package ledger

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mohitagarwal24/ResQ/internal/model"
)

// replay 从零按序重放事件日志，重建全部悬赏与捐款状态。
// 仅在构造期单线程调用。重放使用与在线路径完全相同的 apply
// 函数，保证重建结果与当时的内存状态逐字段一致。
func (l *Ledger) replay(events []model.LedgerEvent) error {
	var lastSeq uint64
	for i := range events {
		event := &events[i]
		if event.Seq <= lastSeq {
			return fmt.Errorf("事件序号非递增: seq=%d 前序=%d", event.Seq, lastSeq)
		}
		lastSeq = event.Seq

		if err := l.applyEvent(event); err != nil {
			return fmt.Errorf("重放事件 seq=%d 失败: %w", event.Seq, err)
		}
	}
	atomic.StoreUint64(&l.nextSeq, lastSeq)
	return nil
}

// applyEvent 按类型分发单个事件
func (l *Ledger) applyEvent(event *model.LedgerEvent) error {
	switch event.EventType {
	case model.EventTypeCreated:
		var data model.CreatedData
		if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
			return fmt.Errorf("解析 Created 负载: %w", err)
		}
		l.applyCreated(event, data)

	case model.EventTypeDonated:
		state, err := l.replayState(event.BountyID)
		if err != nil {
			return err
		}
		var data model.DonatedData
		if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
			return fmt.Errorf("解析 Donated 负载: %w", err)
		}
		l.applyDonated(state, event, data)

	case model.EventTypeProofSubmitted:
		state, err := l.replayState(event.BountyID)
		if err != nil {
			return err
		}
		var data model.ProofSubmittedData
		if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
			return fmt.Errorf("解析 ProofSubmitted 负载: %w", err)
		}
		l.applyProofSubmitted(state, event, data)

	case model.EventTypeReleased:
		state, err := l.replayState(event.BountyID)
		if err != nil {
			return err
		}
		var data model.ReleasedData
		if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
			return fmt.Errorf("解析 Released 负载: %w", err)
		}
		l.applyReleased(state, event, data)

	default:
		return fmt.Errorf("未知事件类型: %s", event.EventType)
	}
	return nil
}

func (l *Ledger) replayState(bountyID uint64) (*bountyState, error) {
	state, ok := l.bounties[bountyID]
	if !ok {
		return nil, fmt.Errorf("事件引用不存在的悬赏 %d", bountyID)
	}
	return state, nil
}

// applyCreated 登记新悬赏。在线路径调用时必须持有 l.mu。
func (l *Ledger) applyCreated(event *model.LedgerEvent, data model.CreatedData) {
	state := &bountyState{
		bounty: model.Bounty{
			ID:               event.BountyID,
			CreatedAt:        event.CreatedAt,
			UpdatedAt:        event.CreatedAt,
			Title:            data.Title,
			Description:      data.Description,
			Location:         data.Location,
			OrganizerName:    data.OrganizerName,
			ImageURL:         data.ImageURL,
			GoalAmount:       data.GoalAmount,
			RaisedAmount:     0,
			Status:           model.BountyStatusOpen,
			OrganizerAddress: normalizeAddress(data.Organizer),
		},
	}
	l.bounties[event.BountyID] = state
	l.locks[event.BountyID] = &sync.Mutex{}
	if event.BountyID >= l.nextID {
		l.nextID = event.BountyID + 1
	}
}

// applyDonated 入账捐款。在线路径调用时必须持有悬赏写锁；
// 字段变更本身持 state.mu，与快照读取互斥。
func (l *Ledger) applyDonated(state *bountyState, event *model.LedgerEvent, data model.DonatedData) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.bounty.RaisedAmount += data.Amount
	state.bounty.UpdatedAt = event.CreatedAt
	state.donations = append(state.donations, model.Donation{
		CreatedAt:    event.CreatedAt,
		BountyID:     event.BountyID,
		DonorAddress: normalizeAddress(data.Donor),
		Amount:       data.Amount,
		TxHash:       event.TxHash,
	})
}

// applyProofSubmitted 记录证明引用并进入 ProofPending
func (l *Ledger) applyProofSubmitted(state *bountyState, event *model.LedgerEvent, data model.ProofSubmittedData) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.bounty.ProofIpfsHash = data.ProofIpfsHash
	state.bounty.Status = model.BountyStatusProofPending
	state.bounty.UpdatedAt = event.CreatedAt
}

// applyReleased 审核结果落账。通过为终态 Completed 并保留证明引用
// 作为审计记录；驳回则清除证明引用、回到 Open。
func (l *Ledger) applyReleased(state *bountyState, event *model.LedgerEvent, data model.ReleasedData) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if data.Verified {
		state.bounty.Status = model.BountyStatusCompleted
	} else {
		state.bounty.Status = model.BountyStatusOpen
		state.bounty.ProofIpfsHash = ""
	}
	state.bounty.UpdatedAt = event.CreatedAt
}
