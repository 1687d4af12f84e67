package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/mohitagarwal24/ResQ/internal/ledger"
	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/model"
)

// ReadModelStore 索引器的投影存储接口，repository.ReadModelStore 实现
type ReadModelStore interface {
	UpsertBounty(bounty *model.Bounty) error
	CreateDonation(donation *model.Donation) error
	CreateSettlementRecord(record *model.SettlementRecord) error
}

// Indexer 读模型索引器。订阅账本事件日志，把事件投影成
// 悬赏/捐款/结算记录表。投影是幂等的：悬赏行整体覆盖为账本
// 当前快照，捐款和结算按 tx_hash/bounty_id 去重，所以乱序或
// 重复投影不会破坏读模型。
type Indexer struct {
	ledger *ledger.Ledger
	store  ReadModelStore
	pool   *ants.Pool
	sub    *ledger.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建索引器
func New(l *ledger.Ledger, store ReadModelStore, workers int) (*Indexer, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("创建协程池失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		ledger: l,
		store:  store,
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start 先全量重建投影，再订阅增量事件
func (ix *Indexer) Start(events []model.LedgerEvent) error {
	logger.Info("Rebuilding read model from %d events", len(events))
	for i := range events {
		if err := ix.process(events[i]); err != nil {
			return fmt.Errorf("重建读模型失败 seq=%d: %w", events[i].Seq, err)
		}
	}

	ix.sub = ix.ledger.Subscribe()
	go ix.loop()
	logger.Info("Indexer started")
	return nil
}

// Stop 停止索引器
func (ix *Indexer) Stop() {
	ix.cancel()
	if ix.sub != nil {
		ix.sub.Close()
	}
	ix.pool.Release()
	logger.Info("Indexer stopped")
}

// loop 消费订阅通道，投影任务提交到协程池执行
func (ix *Indexer) loop() {
	for {
		select {
		case <-ix.ctx.Done():
			return
		case event, ok := <-ix.sub.C:
			if !ok {
				return
			}
			if err := ix.pool.Submit(func() {
				if err := ix.process(event); err != nil {
					logger.Error("Error projecting event seq=%d: %v", event.Seq, err)
				}
			}); err != nil {
				logger.Error("Error submitting projection task: %v", err)
			}
		}
	}
}

// process 投影单个事件
func (ix *Indexer) process(event model.LedgerEvent) error {
	// 悬赏行直接覆盖为账本当前快照，天然吸收乱序
	snapshot, err := ix.ledger.GetBounty(event.BountyID)
	if err != nil {
		return fmt.Errorf("读取悬赏快照失败: %w", err)
	}
	if err := ix.store.UpsertBounty(snapshot); err != nil {
		return err
	}

	switch event.EventType {
	case model.EventTypeDonated:
		var data model.DonatedData
		if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
			return fmt.Errorf("解析 Donated 负载: %w", err)
		}
		return ix.store.CreateDonation(&model.Donation{
			CreatedAt:    event.CreatedAt,
			BountyID:     event.BountyID,
			DonorAddress: data.Donor,
			Amount:       data.Amount,
			TxHash:       event.TxHash,
		})

	case model.EventTypeReleased:
		var data model.ReleasedData
		if err := json.Unmarshal([]byte(event.Data), &data); err != nil {
			return fmt.Errorf("解析 Released 负载: %w", err)
		}
		if !data.Verified {
			return nil
		}
		return ix.store.CreateSettlementRecord(&model.SettlementRecord{
			CreatedAt:        event.CreatedAt,
			BountyID:         event.BountyID,
			OrganizerAddress: snapshot.OrganizerAddress,
			Amount:           data.Amount,
			TxHash:           event.TxHash,
		})
	}
	return nil
}
