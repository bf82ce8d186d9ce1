package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type DBClient struct {
	DB     *sql.DB
	name   string
	logger *zap.Logger
}

func NewPostgresDB(dbURL string, logger *zap.Logger) (*DBClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	logger.Info("connected to PostgreSQL database")
	return &DBClient{DB: db, name: "PostgreSQL", logger: logger}, nil
}

func (c *DBClient) Close() {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		c.logger.Warn("error closing database connection", zap.String("db", c.name), zap.Error(err))
		return
	}
	c.logger.Info("database connection closed", zap.String("db", c.name))
}
