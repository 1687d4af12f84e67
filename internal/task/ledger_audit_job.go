package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mohitagarwal24/ResQ/internal/config"
	"github.com/mohitagarwal24/ResQ/internal/ledger"
	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/repository"
)

// LedgerAuditJob 账目审计任务。定期校验两件事：
// 1. 账本内存状态的记账不变量 raisedAmount == sum(donations)
// 2. 读模型投影与账本快照之间的金额偏差（投影最终一致，
//    持续偏差说明索引器丢了事件）
type LedgerAuditJob struct {
	ledger    *ledger.Ledger
	readModel *repository.ReadModelStore
	config    *config.Config
}

// NewLedgerAuditJob 创建账目审计任务
func NewLedgerAuditJob(l *ledger.Ledger, readModel *repository.ReadModelStore, cfg *config.Config) *LedgerAuditJob {
	return &LedgerAuditJob{
		ledger:    l,
		readModel: readModel,
		config:    cfg,
	}
}

// GetName 获取任务名称
func (j *LedgerAuditJob) GetName() string {
	return "ledger_auditor"
}

// GetSchedule 获取调度配置
func (j *LedgerAuditJob) GetSchedule() gocron.JobDefinition {
	interval := j.config.Task.AuditInterval
	if interval <= 0 {
		interval = 300
	}
	return gocron.DurationJob(time.Duration(interval) * time.Second)
}

// Execute 执行审计
func (j *LedgerAuditJob) Execute() {
	logger.Debug("Starting ledger audit task")

	// 账本内部不变量
	for _, problem := range j.ledger.Audit() {
		logger.Error("Ledger audit: %s", problem)
	}

	// 读模型偏差
	checked := 0
	for _, bounty := range j.ledger.GetAllBounties() {
		sum, err := j.readModel.SumDonations(bounty.ID)
		if err != nil {
			logger.Error("Ledger audit: failed to sum donations for bounty %d: %v", bounty.ID, err)
			continue
		}
		if sum != bounty.RaisedAmount {
			logger.Warn("Ledger audit: read model drift on bounty %d: projected=%d ledger=%d",
				bounty.ID, sum, bounty.RaisedAmount)
		}
		checked++
	}

	logger.Debug("Ledger audit finished, %d bounties checked", checked)
}
