package task

import (
	"github.com/go-co-op/gocron/v2"

	"github.com/mohitagarwal24/ResQ/internal/config"
	"github.com/mohitagarwal24/ResQ/internal/ledger"
	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/repository"
)

// Manager 定时任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	ledger    *ledger.Ledger
	readModel *repository.ReadModelStore
	config    *config.Config
}

// NewManager 创建任务管理器
func NewManager(l *ledger.Ledger, readModel *repository.ReadModelStore, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		ledger:    l,
		readModel: readModel,
		config:    cfg,
	}
}

// Start 注册并启动所有任务
func Start(l *ledger.Ledger, readModel *repository.ReadModelStore, cfg *config.Config) *Manager {
	manager := NewManager(l, readModel, cfg)
	manager.RegisterJobs()
	manager.scheduler.Start()
	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.registerLedgerAuditJob()
}

// registerLedgerAuditJob 注册账目审计任务
func (m *Manager) registerLedgerAuditJob() {
	job := NewLedgerAuditJob(m.ledger, m.readModel, m.config)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
