package main

import (
	"github.com/gin-gonic/gin"

	"github.com/mohitagarwal24/ResQ/internal/config"
	"github.com/mohitagarwal24/ResQ/internal/indexer"
	"github.com/mohitagarwal24/ResQ/internal/ipfs"
	"github.com/mohitagarwal24/ResQ/internal/ledger"
	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/repository"
	"github.com/mohitagarwal24/ResQ/internal/router"
	"github.com/mohitagarwal24/ResQ/internal/task"
	"github.com/mohitagarwal24/ResQ/internal/treasury"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		Output: cfg.Log.Output,
		File:   cfg.Log.File,
	}); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	eventStore := repository.NewEventStore(db)
	readModel := repository.NewReadModelStore(db)

	// 初始化资金账户簿并从结算记录重建余额
	treas := treasury.New()
	records, err := readModel.ListSettlementRecords()
	if err != nil {
		logger.Fatal("Failed to load settlement records: %v", err)
	}
	treas.Seed(records)

	// 初始化账本，从事件日志重放权威状态
	led, err := ledger.New(eventStore, treas, ledger.Config{
		VerifierAddress:  cfg.Ledger.VerifierAddress,
		SubscriberBuffer: cfg.Ledger.SubscriberBuffer,
	})
	if err != nil {
		logger.Fatal("Failed to initialize ledger: %v", err)
	}
	logger.Info("Ledger replayed, %d bounties", len(led.GetAllBounties()))

	// 启动读模型索引器
	events, err := eventStore.LoadEvents()
	if err != nil {
		logger.Fatal("Failed to load events for indexer: %v", err)
	}
	ix, err := indexer.New(led, readModel, 4)
	if err != nil {
		logger.Fatal("Failed to create indexer: %v", err)
	}
	if err := ix.Start(events); err != nil {
		logger.Fatal("Failed to start indexer: %v", err)
	}
	defer ix.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(router.Deps{
		Ledger:     led,
		ReadModel:  readModel,
		EventStore: eventStore,
		Treasury:   treas,
		IPFS:       ipfs.NewClient(cfg.IPFS),
		Config:     cfg,
	})

	// 启动定时任务
	manager := task.Start(led, readModel, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
