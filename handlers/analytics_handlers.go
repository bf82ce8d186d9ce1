// handlers/analytics_handlers.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"partnerdash/api/analytics"
	"partnerdash/api/models"
	"partnerdash/api/store"
)

// AnalyticsHandlers serves statistics derived from the filtered usage log.
type AnalyticsHandlers struct {
	Logs   *store.LogStore
	logger *zap.Logger
}

func NewAnalyticsHandlers(logs *store.LogStore, logger *zap.Logger) *AnalyticsHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandlers{Logs: logs, logger: logger}
}

// filtered reads the log and applies the request's filter. It writes the
// error response itself and returns ok=false on failure.
func (h *AnalyticsHandlers) filtered(c *gin.Context) ([]models.LogEntry, bool) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	entries, err := h.Logs.ReadAll(c.Request.Context())
	if err != nil {
		h.logger.Error("error reading usage log for stats", zap.String("route", c.FullPath()), zap.Error(err))
		respondStoreError(c, err)
		return nil, false
	}
	return filter.Apply(entries), true
}

func (h *AnalyticsHandlers) GetSummary(c *gin.Context) {
	if entries, ok := h.filtered(c); ok {
		c.JSON(http.StatusOK, analytics.Summarize(entries))
	}
}

func (h *AnalyticsHandlers) GetTopPages(c *gin.Context) {
	if entries, ok := h.filtered(c); ok {
		c.JSON(http.StatusOK, analytics.TopPages(entries))
	}
}

func (h *AnalyticsHandlers) GetHeatmap(c *gin.Context) {
	if entries, ok := h.filtered(c); ok {
		c.JSON(http.StatusOK, analytics.ClickHeatmap(entries))
	}
}

func (h *AnalyticsHandlers) GetSessions(c *gin.Context) {
	if entries, ok := h.filtered(c); ok {
		c.JSON(http.StatusOK, gin.H{
			"sessions":                  analytics.Sessions(entries),
			"averageSessionDurationSec": analytics.AverageSessionDuration(entries),
		})
	}
}

func (h *AnalyticsHandlers) GetHourlyActivity(c *gin.Context) {
	if entries, ok := h.filtered(c); ok {
		c.JSON(http.StatusOK, gin.H{"hours": analytics.HourlyActivity(entries)})
	}
}

func (h *AnalyticsHandlers) GetActionDistribution(c *gin.Context) {
	if entries, ok := h.filtered(c); ok {
		c.JSON(http.StatusOK, gin.H{
			"actions":        analytics.ActionDistribution(entries),
			"uniqueVisitors": analytics.UniqueVisitors(entries),
		})
	}
}
