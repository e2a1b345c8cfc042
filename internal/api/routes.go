package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all control API routes
func SetupRoutes(router *gin.Engine, h *Handlers) {
	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", h.HealthCheck)

		// Session and case status
		api.GET("/status", h.Status)
		api.GET("/board/stats", h.BoardStats)

		// Sync triggers
		api.POST("/sync", h.Sync)
		api.POST("/sync/selected", h.SyncSelected)
		api.POST("/auto-sync", h.AutoSync)

		// Backend messages
		api.POST("/messages", h.PushMessage)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.DELETE("/notifications/:id", h.DismissNotification)

		// Run history
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
	}
}
