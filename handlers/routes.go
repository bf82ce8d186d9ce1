package handlers

import (
	"github.com/gin-gonic/gin"

	"partnerdash/api/middleware"
	"partnerdash/api/models"
)

// Routes groups the handler sets mounted under /api.
type Routes struct {
	Auth      *AuthHandlers
	Tracking  *TrackingHandlers
	Logs      *LogHandlers
	Analytics *AnalyticsHandlers
}

// Register mounts every endpoint on api. authRequired guards all routes
// except signup, login and logout; /admin additionally needs the admin role.
func (rt Routes) Register(api *gin.RouterGroup, authRequired gin.HandlerFunc) {
	if rt.Auth != nil {
		api.POST("/signup", rt.Auth.Signup)
		api.POST("/login", rt.Auth.Login)
		api.POST("/logout", rt.Auth.Logout)
	}

	protected := api.Group("/")
	protected.Use(authRequired)
	{
		if rt.Auth != nil {
			protected.GET("/profile", rt.Auth.Profile)
		}

		protected.POST("/track", rt.Tracking.TrackEvents)
		protected.GET("/tracking/config", rt.Tracking.GetConfig)
		protected.GET("/heatmap/live", rt.Tracking.LiveHeatmap)

		protected.GET("/logs", rt.Logs.ListLogs)
		protected.GET("/logs/export", rt.Logs.ExportLogs)

		stats := protected.Group("/stats")
		{
			stats.GET("/summary", rt.Analytics.GetSummary)
			stats.GET("/top-pages", rt.Analytics.GetTopPages)
			stats.GET("/heatmap", rt.Analytics.GetHeatmap)
			stats.GET("/sessions", rt.Analytics.GetSessions)
			stats.GET("/hourly", rt.Analytics.GetHourlyActivity)
			stats.GET("/actions", rt.Analytics.GetActionDistribution)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.PATCH("/tracking/config", rt.Tracking.PatchConfig)
			admin.DELETE("/logs", rt.Logs.ClearLogs)
			admin.POST("/logs/archive", rt.Logs.ArchiveLogs)
			admin.GET("/archive/top-pages", rt.Logs.ArchiveTopPages)
		}
	}
}
