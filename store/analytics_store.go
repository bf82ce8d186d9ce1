// store/analytics_store.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"partnerdash/api/database"
	"partnerdash/api/models"
)

// AnalyticsStore archives usage log entries into ClickHouse so history
// survives the log store's retention cap and Clear.
type AnalyticsStore struct {
	DB     *database.ClickHouseClient
	logger *zap.Logger
}

func NewAnalyticsStore(chClient *database.ClickHouseClient, logger *zap.Logger) *AnalyticsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsStore{
		DB:     chClient,
		logger: logger,
	}
}

// EnsureSchema creates the archive table. ReplacingMergeTree on id makes
// repeated archiving of the same entries idempotent after merges.
func (s *AnalyticsStore) EnsureSchema(ctx context.Context) error {
	err := s.DB.Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS usage_logs (
			id String,
			user_id String,
			session_id String,
			timestamp DateTime64(3, 'UTC'),
			action LowCardinality(String),
			page String,
			element String,
			x Nullable(Float64),
			y Nullable(Float64),
			duration_ms Nullable(Int64),
			metadata String,
			user_agent String
		) ENGINE = ReplacingMergeTree
		ORDER BY (page, timestamp, id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usage_logs table: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) InsertLogEntries(ctx context.Context, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO usage_logs (
			id, user_id, session_id, timestamp, action, page, element,
			x, y, duration_ms, metadata, user_agent
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, e := range entries {
		var x, y *float64
		if e.Coordinates != nil {
			x, y = &e.Coordinates.X, &e.Coordinates.Y
		}
		metadata := "{}"
		if len(e.Metadata) > 0 {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				s.logger.Warn("skipping entry with unencodable metadata", zap.String("id", e.ID), zap.Error(err))
				continue
			}
			metadata = string(raw)
		}
		err := batch.Append(
			e.ID,
			e.UserID,
			e.SessionID,
			e.Timestamp,
			e.Action,
			e.Page,
			e.Element,
			x,
			y,
			e.Duration,
			metadata,
			e.UserAgent,
		)
		if err != nil {
			s.logger.Warn("error appending entry to batch", zap.String("id", e.ID), zap.Error(err))
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.Info("archived usage log entries", zap.Int("count", len(entries)))
	return nil
}

// GetTopNPagePaths ranks archived pages by page_view entries, exits excluded.
func (s *AnalyticsStore) GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT page, count() AS view_count
		FROM usage_logs FINAL
		WHERE action = 'page_view'
			AND JSONExtractString(metadata, 'type') != 'exit'
			AND timestamp >= ? AND timestamp <= ?
		GROUP BY page
		ORDER BY view_count DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	var results []models.TopPathResult
	for rows.Next() {
		var pagePath string
		var count uint64
		if err := rows.Scan(&pagePath, &count); err != nil {
			s.logger.Warn("error scanning row for top page paths", zap.Error(err))
			continue
		}
		results = append(results, models.TopPathResult{
			PagePath: pagePath,
			Count:    count,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top page paths: %w", err)
	}

	return results, nil
}
