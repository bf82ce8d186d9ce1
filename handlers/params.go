package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"partnerdash/api/analytics"
	"partnerdash/api/middleware"
	"partnerdash/api/models"
	"partnerdash/api/store"
)

// parseFilter reads the optional start, end, action and page query
// parameters shared by the log and stats endpoints.
func parseFilter(c *gin.Context) (analytics.Filter, error) {
	f := analytics.Filter{
		Action: c.Query("action"),
		Page:   c.Query("page"),
	}
	var err error
	if f.Start, err = parseTime(c, "start"); err != nil {
		return f, err
	}
	if f.End, err = parseTime(c, "end"); err != nil {
		return f, err
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, errors.New("'end' must not be before 'start'")
	}
	return f, nil
}

func parseTime(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)", name)
	}
	return t, nil
}

func parseLimit(c *gin.Context, fallback uint64) (uint64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid 'limit' parameter. Must be a positive integer")
	}
	return n, nil
}

// userIDFromContext returns the authenticated user id, or the anonymous
// sentinel when the request carries none.
func userIDFromContext(c *gin.Context) string {
	v, ok := c.Get(middleware.KeyUserID)
	if !ok {
		return models.AnonymousUser
	}
	id := fmt.Sprint(v)
	if id == "" {
		return models.AnonymousUser
	}
	return id
}

// respondStoreError maps log store failures to a JSON error response.
func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrCorruptLog) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Usage log is corrupt", "code": "corrupt_log"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read usage log"})
}
