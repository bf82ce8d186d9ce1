package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"partnerdash/api/config"
)

type ClickHouseClient struct {
	Conn   clickhouse.Conn
	logger *zap.Logger
}

func NewClickHouseDB(cfg config.ClickHouseConfig, logger *zap.Logger) (*ClickHouseClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" || cfg.NativePort == 0 || cfg.Database == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT, or CLICKHOUSE_DB_NAME is not set")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.NativePort)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "partnerdash-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("connected to ClickHouse", zap.String("addr", options.Addr[0]))
	return &ClickHouseClient{Conn: conn, logger: logger}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil {
			c.logger.Warn("error closing ClickHouse connection", zap.Error(err))
			return
		}
		c.logger.Info("ClickHouse connection closed")
	}
}
