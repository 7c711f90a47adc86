package routes

import (
	"log/slog"

	"warehouse-sync-agent/internal/handlers"
	"warehouse-sync-agent/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(h *handlers.Handler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS())

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"online":  h.Monitor.Online(),
			"message": "Warehouse sync agent is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware(h.Tokens))
	{
		// Mutations
		protectedRoutes.POST("/operations/:kind", h.SubmitOperation)

		// Outbox
		protectedRoutes.GET("/sync/stats", h.GetSyncStats)
		protectedRoutes.GET("/sync/operations", h.GetOperations)
		protectedRoutes.POST("/sync/drain", h.DrainNow)
		protectedRoutes.DELETE("/sync/failed", h.ClearFailed)
		protectedRoutes.POST("/sync/operations/:id/retry", h.RetryOperation)

		// Event ledger
		protectedRoutes.GET("/notifications", h.GetNotifications)
		protectedRoutes.GET("/notifications/counts", h.GetNotificationCounts)
		protectedRoutes.POST("/notifications/read", h.MarkAllNotificationsRead)
		protectedRoutes.POST("/notifications/:id/read", h.MarkNotificationRead)
		protectedRoutes.DELETE("/notifications/read", h.ClearReadNotifications)
		protectedRoutes.DELETE("/notifications", h.ClearNotifications)

		// Connectivity
		protectedRoutes.GET("/connectivity", h.GetConnectivity)
		protectedRoutes.POST("/connectivity", h.SetConnectivity)

		// Response cache and read passthrough
		protectedRoutes.GET("/cache/stats", h.GetCacheStats)
		protectedRoutes.DELETE("/cache", h.ClearCache)
		protectedRoutes.GET("/remote/*path", h.ProxyRead)

		protectedRoutes.GET("/ws", h.WebSocket)
	}

	return ginRouter
}
