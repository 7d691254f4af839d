package router

import (
	"github.com/craftbay/internal/config"
	"github.com/craftbay/internal/http/handlers"
	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := handlers.New(c)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		orders := apiV1.Group("/orders")
		{
			orders.GET("", handler.ListOrders)
			orders.GET("/:id", handler.GetOrder)
			orders.GET("/:id/history", handler.ListOrderHistory)

			// 状态机迁移端点，与迁移操作一一对应
			orders.POST("/:id/approve-by-admin", handler.ApproveByAdmin)
			orders.POST("/:id/approve-by-seller", handler.ApproveBySeller)
			orders.POST("/:id/start-work", handler.StartWork)
			orders.POST("/:id/complete-work", handler.CompleteWork)
			orders.POST("/:id/pick-up", handler.PickUpByDelivery)
			orders.POST("/:id/mark-delivered", handler.MarkAsDelivered)
			orders.POST("/:id/mark-completed", handler.MarkAsCompleted)
			orders.POST("/:id/cancel", handler.Cancel)
			orders.POST("/:id/suspend", handler.Suspend)
			orders.POST("/:id/price/approve", handler.ApproveProposedPrice)
			orders.POST("/:id/price/reject", handler.RejectProposedPrice)
		}

		wallets := apiV1.Group("/wallets")
		{
			wallets.GET("/:user_id", handler.GetWalletAccount)
			wallets.GET("/:user_id/transactions", handler.ListWalletTransactions)
			wallets.POST("/adjust", handler.AdminAdjustWallet)
		}

		notifications := apiV1.Group("/notifications")
		{
			notifications.GET("", handler.ListNotifications)
			notifications.POST("/:id/read", handler.MarkNotificationRead)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
