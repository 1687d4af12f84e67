package treasury

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/model"
)

// Treasury 内部资金账户簿。托管资金结算时一次性划入组织者账户，
// 实现 ledger.FundTransferor。余额可由结算记录重建（Seed）。
type Treasury struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// New 创建空账户簿
func New() *Treasury {
	return &Treasury{balances: make(map[string]int64)}
}

// Seed 用历史结算记录重建余额，服务启动时调用一次
func (t *Treasury) Seed(records []model.SettlementRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range records {
		t.balances[common.HexToAddress(r.OrganizerAddress).Hex()] += r.Amount
	}
	logger.Info("Treasury seeded from %d settlement records", len(records))
}

// Transfer 把 amount 划入 to 的账户。返回 nil 即视为转账确认。
func (t *Treasury) Transfer(to string, amount int64) error {
	if !common.IsHexAddress(to) {
		return fmt.Errorf("非法的收款地址: %s", to)
	}
	if amount <= 0 {
		return fmt.Errorf("划转金额必须大于0: %d", amount)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[common.HexToAddress(to).Hex()] += amount
	return nil
}

// Balance 查询账户余额
func (t *Treasury) Balance(address string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[common.HexToAddress(address).Hex()]
}
