package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"partnerdash/api/models"
	"partnerdash/api/store"
)

// Archive is the long-term sink for usage log entries.
type Archive interface {
	InsertLogEntries(ctx context.Context, entries []models.LogEntry) error
	GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error)
}

type LogHandlers struct {
	Logs    *store.LogStore
	Archive Archive
	logger  *zap.Logger
	now     func() time.Time
}

// NewLogHandlers builds the log endpoints. archive may be nil.
func NewLogHandlers(logs *store.LogStore, archive Archive, logger *zap.Logger) *LogHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHandlers{Logs: logs, Archive: archive, logger: logger, now: time.Now}
}

func (h *LogHandlers) ListLogs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := h.Logs.ReadAll(c.Request.Context())
	if err != nil {
		h.logger.Error("error reading usage log", zap.Error(err))
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, filter.Apply(entries))
}

func (h *LogHandlers) ExportLogs(c *gin.Context) {
	data, err := h.Logs.Export(c.Request.Context())
	if err != nil {
		h.logger.Error("error exporting usage log", zap.Error(err))
		respondStoreError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+store.ExportFilename(h.now())+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// ClearLogs wipes the log. The irreversible delete needs confirm=true.
func (h *LogHandlers) ClearLogs(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "Clearing the usage log is irreversible; repeat with confirm=true"})
		return
	}
	if err := h.Logs.Clear(c.Request.Context()); err != nil {
		h.logger.Error("error clearing usage log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear usage log"})
		return
	}
	h.logger.Info("usage log cleared", zap.String("by", userIDFromContext(c)))
	c.Status(http.StatusNoContent)
}

func (h *LogHandlers) ArchiveLogs(c *gin.Context) {
	if h.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive is not configured"})
		return
	}
	entries, err := h.Logs.ReadAll(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	if err := h.Archive.InsertLogEntries(ctx, entries); err != nil {
		h.logger.Error("error archiving usage log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive usage log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": len(entries)})
}

func (h *LogHandlers) ArchiveTopPages(c *gin.Context) {
	if h.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive is not configured"})
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Start.IsZero() {
		filter.Start = h.now().UTC().Add(-7 * 24 * time.Hour)
	}
	if filter.End.IsZero() {
		filter.End = h.now().UTC()
	}
	limit, err := parseLimit(c, 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	results, err := h.Archive.GetTopNPagePaths(ctx, filter.Start, filter.End, limit)
	if err != nil {
		h.logger.Error("error getting archived top page paths", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top page paths statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}
