package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mohitagarwal24/ResQ/internal/model"
)

// EventStore 事件日志的 postgres 持久化，实现 ledger.EventStore。
// 事件表只插入、只按 seq 读取，绝不更新或删除。
type EventStore struct {
	db *gorm.DB
}

// NewEventStore 创建事件存储
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// AppendEvent 追加一条事件
func (s *EventStore) AppendEvent(event *model.LedgerEvent) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("追加事件失败: %w", err)
	}
	return nil
}

// LoadEvents 按序加载全部事件，账本启动重放用
func (s *EventStore) LoadEvents() ([]model.LedgerEvent, error) {
	var events []model.LedgerEvent
	if err := s.db.Order("seq ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("加载事件失败: %w", err)
	}
	return events, nil
}

// ListEvents 按 seq 游标分页读取事件，轮询接口用
func (s *EventStore) ListEvents(afterSeq uint64, limit int) ([]model.LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []model.LedgerEvent
	if err := s.db.Where("seq > ?", afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("读取事件失败: %w", err)
	}
	return events, nil
}
