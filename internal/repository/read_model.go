package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mohitagarwal24/ResQ/internal/model"
)

// ReadModelStore 读模型存储。索引器把事件日志投影成悬赏/捐款表，
// 查询接口从这里读，数据与账本内存状态最终一致。
type ReadModelStore struct {
	db *gorm.DB
}

// NewReadModelStore 创建读模型存储
func NewReadModelStore(db *gorm.DB) *ReadModelStore {
	return &ReadModelStore{db: db}
}

// UpsertBounty 写入或覆盖悬赏投影
func (s *ReadModelStore) UpsertBounty(bounty *model.Bounty) error {
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(bounty).Error; err != nil {
		return fmt.Errorf("写入悬赏投影失败: %w", err)
	}
	return nil
}

// CreateDonation 写入捐款投影。tx_hash 唯一索引保证重复投影幂等。
func (s *ReadModelStore) CreateDonation(donation *model.Donation) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(donation).Error
	if err != nil {
		return fmt.Errorf("写入捐款投影失败: %w", err)
	}
	return nil
}

// CreateSettlementRecord 写入结算记录。bounty_id 唯一索引兜底
// 一次性结算约束，重复写入幂等。
func (s *ReadModelStore) CreateSettlementRecord(record *model.SettlementRecord) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bounty_id"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("写入结算记录失败: %w", err)
	}
	return nil
}

// ListDonations 按悬赏分页查询捐款记录，新的在前
func (s *ReadModelStore) ListDonations(bountyID uint64, page, pageSize int) ([]model.Donation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&model.Donation{}).
		Where("bounty_id = ?", bountyID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计捐款记录失败: %w", err)
	}

	var donations []model.Donation
	if err := s.db.Where("bounty_id = ?", bountyID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&donations).Error; err != nil {
		return nil, 0, fmt.Errorf("查询捐款记录失败: %w", err)
	}

	return donations, total, nil
}

// BountyStats 悬赏募捐统计
type BountyStats struct {
	BountyID      uint64  `json:"bounty_id"`
	GoalAmount    int64   `json:"goal_amount"`
	RaisedAmount  int64   `json:"raised_amount"`
	PercentFunded float64 `json:"percent_funded"`
	DonorCount    int64   `json:"donor_count"`
	DonationCount int64   `json:"donation_count"`
	Status        string  `json:"status"`
}

// GetBountyStats 聚合单个悬赏的募捐统计
func (s *ReadModelStore) GetBountyStats(bountyID uint64) (*BountyStats, error) {
	var bounty model.Bounty
	if err := s.db.First(&bounty, bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询悬赏投影失败: %w", err)
	}

	var donorCount, donationCount int64
	if err := s.db.Model(&model.Donation{}).
		Where("bounty_id = ?", bountyID).
		Distinct("donor_address").
		Count(&donorCount).Error; err != nil {
		return nil, fmt.Errorf("统计捐款人数失败: %w", err)
	}
	if err := s.db.Model(&model.Donation{}).
		Where("bounty_id = ?", bountyID).
		Count(&donationCount).Error; err != nil {
		return nil, fmt.Errorf("统计捐款笔数失败: %w", err)
	}

	percent := float64(0)
	if bounty.GoalAmount > 0 {
		percent = float64(bounty.RaisedAmount) / float64(bounty.GoalAmount) * 100
	}

	return &BountyStats{
		BountyID:      bounty.ID,
		GoalAmount:    bounty.GoalAmount,
		RaisedAmount:  bounty.RaisedAmount,
		PercentFunded: percent,
		DonorCount:    donorCount,
		DonationCount: donationCount,
		Status:        string(bounty.Status),
	}, nil
}

// ListSettlementRecords 按结算时间顺序返回全部结算记录
func (s *ReadModelStore) ListSettlementRecords() ([]model.SettlementRecord, error) {
	var records []model.SettlementRecord
	if err := s.db.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询结算记录失败: %w", err)
	}
	return records, nil
}

// SumDonations 从捐款投影汇总金额，审计任务用
func (s *ReadModelStore) SumDonations(bountyID uint64) (int64, error) {
	var sum int64
	err := s.db.Model(&model.Donation{}).
		Where("bounty_id = ?", bountyID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("汇总捐款金额失败: %w", err)
	}
	return sum, nil
}
