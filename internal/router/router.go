package router

import (
	"github.com/gin-gonic/gin"

	"github.com/mohitagarwal24/ResQ/internal/config"
	"github.com/mohitagarwal24/ResQ/internal/handler"
	"github.com/mohitagarwal24/ResQ/internal/ipfs"
	"github.com/mohitagarwal24/ResQ/internal/ledger"
	"github.com/mohitagarwal24/ResQ/internal/repository"
	"github.com/mohitagarwal24/ResQ/internal/treasury"
)

// Deps 路由依赖
type Deps struct {
	Ledger     *ledger.Ledger
	ReadModel  *repository.ReadModelStore
	EventStore *repository.EventStore
	Treasury   *treasury.Treasury
	IPFS       *ipfs.Client
	Config     *config.Config
}

func Setup(deps Deps) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "resq-ledger",
		})
	})

	bountyHandler := handler.NewBountyHandler(deps.Ledger)
	queryHandler := handler.NewQueryHandler(deps.ReadModel, deps.EventStore, deps.Treasury)
	proofHandler := handler.NewProofHandler(deps.IPFS)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		bounties := v1.Group("/bounties")
		{
			// 读路径：快照来自账本，历史与统计来自读模型
			bounties.GET("", bountyHandler.GetBounties)
			bounties.GET("/:id", bountyHandler.GetBounty)
			bounties.GET("/:id/donations", queryHandler.GetDonations)
			bounties.GET("/:id/stats", queryHandler.GetBountyStats)

			// 写路径：身份中间件必需
			authed := bounties.Group("", handler.IdentityMiddleware())
			{
				authed.POST("", bountyHandler.CreateBounty)
				authed.POST("/:id/donations", bountyHandler.Donate)
				authed.POST("/:id/proof", bountyHandler.SubmitProof)
				authed.POST("/:id/release", bountyHandler.Release)
			}
		}

		v1.GET("/events", queryHandler.GetEvents)
		v1.GET("/accounts/:address/balance", queryHandler.GetBalance)
		v1.POST("/proofs", handler.IdentityMiddleware(), proofHandler.UploadProof)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Caller-Address")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
