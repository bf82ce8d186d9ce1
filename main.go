// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"partnerdash/api/config"
	"partnerdash/api/database"
	"partnerdash/api/handlers"
	"partnerdash/api/metrics"
	"partnerdash/api/middleware"
	"partnerdash/api/store"
	"partnerdash/api/tracker"
	"partnerdash/api/utils"
)

func main() {
	// Load .env file at the very start
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	if envErr != nil {
		logger.Info("no .env file loaded", zap.Error(envErr))
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.ConfigureJWT(cfg.JWTSecret)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// --- PostgreSQL (users, and the usage log blob by default) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize PostgreSQL database", zap.Error(err))
	}
	defer dbClient.Close()

	userStore := store.NewUserStore(dbClient.DB)
	if err := userStore.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to prepare users table", zap.Error(err))
	}

	// --- Usage log backend ---
	blobs, closeBlobs, err := openBlobStore(ctx, cfg, dbClient)
	if err != nil {
		logger.Fatal("failed to initialize usage log store", zap.String("driver", cfg.LogDriver), zap.Error(err))
	}
	defer closeBlobs()

	logs := store.NewLogStore(blobs,
		store.WithLogLimit(cfg.Tracking.LogLimit),
		store.WithLogStoreLogger(logger.Named("logstore")),
		store.WithLogStoreMetrics(m),
	)

	// --- ClickHouse archive (optional) ---
	var archive handlers.Archive
	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to initialize ClickHouse database", zap.Error(err))
		}
		defer chClient.Close()
		analyticsStore := store.NewAnalyticsStore(chClient, logger.Named("archive"))
		if err := analyticsStore.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare ClickHouse archive", zap.Error(err))
		}
		archive = analyticsStore
	} else {
		logger.Info("ClickHouse archive disabled")
	}

	// --- Tracker ---
	controller, err := tracker.NewController(cfg.Tracking.TrackingConfiguration)
	if err != nil {
		logger.Fatal("invalid tracking configuration", zap.Error(err))
	}
	trackerLogger := logger.Named("tracker")
	scrollDebounce := time.Duration(cfg.Tracking.ScrollDebounceMs) * time.Millisecond
	newTracker := func(sessionID string, env tracker.Environment) *tracker.Tracker {
		return tracker.New(logs, controller, env,
			tracker.WithSessionID(sessionID),
			tracker.WithLogger(trackerLogger),
			tracker.WithMetrics(m),
			tracker.WithScrollDebounce(scrollDebounce),
		)
	}
	tracking := handlers.NewTrackingHandlers(newTracker, controller, cfg.SessionIdleTimeout, logger.Named("track"))
	tracking.Metrics = m

	expiryCtx, stopExpiry := context.WithCancel(context.Background())
	defer stopExpiry()
	go tracking.RunExpiry(expiryCtx, time.Minute)

	// --- HTTP ---
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestMetrics(m), middleware.CORSMiddleware(cfg.FEOrigin))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.Routes{
		Auth:      handlers.NewAuthHandlers(userStore, cfg.IsAdminEmail, logger.Named("auth")),
		Tracking:  tracking,
		Logs:      handlers.NewLogHandlers(logs, archive, logger.Named("logs")),
		Analytics: handlers.NewAnalyticsHandlers(logs, logger.Named("stats")),
	}.Register(r.Group("/api"), middleware.AuthRequired(cfg.AuthDefault, logger.Named("auth")))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("API server starting", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Final exit entry for every session still on a page.
	stopExpiry()
	tracking.Shutdown()

	logger.Info("server exiting")
}

func newLogger(ginMode string) (*zap.Logger, error) {
	if ginMode == gin.ReleaseMode {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func openBlobStore(ctx context.Context, cfg config.Config, pg *database.DBClient) (store.BlobStore, func(), error) {
	switch cfg.LogDriver {
	case config.DriverMemory:
		return store.NewMemoryBlobStore(), func() {}, nil
	case config.DriverSQLite:
		client, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		blobs, err := store.NewSQLBlobStore(ctx, client.DB, store.DialectSQLite)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return blobs, client.Close, nil
	default:
		blobs, err := store.NewSQLBlobStore(ctx, pg.DB, store.DialectPostgres)
		if err != nil {
			return nil, nil, err
		}
		return blobs, func() {}, nil
	}
}
