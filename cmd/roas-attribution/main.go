package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radiusdt/roas-attribution/internal/attribution"
	"github.com/radiusdt/roas-attribution/internal/config"
	"github.com/radiusdt/roas-attribution/internal/database"
	"github.com/radiusdt/roas-attribution/internal/facebook"
	"github.com/radiusdt/roas-attribution/internal/geo"
	"github.com/radiusdt/roas-attribution/internal/httpserver"
	"github.com/radiusdt/roas-attribution/internal/metrics"
	"github.com/radiusdt/roas-attribution/internal/order"
	"github.com/radiusdt/roas-attribution/internal/report"
	"github.com/radiusdt/roas-attribution/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("starting roas-attribution",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	ctx := context.Background()
	health := make(map[string]httpserver.HealthChecker)

	// Funnel events and credentials live in PostgreSQL
	var (
		funnelStore storage.FunnelStore
		credStore   storage.CredentialStore
	)
	pg, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Warn("PostgreSQL not available, using in-memory funnel store", zap.Error(err))
		funnelStore = storage.NewInMemoryFunnelStore()
		credStore = storage.NewInMemoryCredentialStore()
	} else {
		defer pg.Close()
		funnelStore = storage.NewPostgresFunnelStore(pg.Pool)
		credStore = storage.NewPostgresCredentialStore(pg.Pool)
		health["postgres"] = pg
	}

	// Raw click events live in ClickHouse
	var clickStore storage.ClickEventStore
	ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
	if err != nil {
		logger.Warn("ClickHouse not available, using in-memory click store", zap.Error(err))
		clickStore = storage.NewInMemoryClickEventStore()
	} else {
		defer ch.Close()
		clickStore = storage.NewClickHouseEventStore(ch.Conn)
		health["clickhouse"] = ch
	}

	// Ingested ad metadata is cached in Redis
	var adCache storage.AdCache
	rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis not available, ad cache disabled", zap.Error(err))
		adCache = storage.NewInMemoryAdCache()
	} else {
		defer rdb.Close()
		adCache = storage.NewRedisAdCache(rdb.Client)
		health["redis"] = rdb
	}

	// Optional GeoIP diagnostics
	var geoResolver *geo.Resolver
	if cfg.Geo.Enabled {
		geoResolver, err = geo.NewResolver(cfg.Geo.DatabasePath)
		if err != nil {
			logger.Warn("GeoIP database not available, geo diagnostics disabled", zap.Error(err))
		} else {
			defer geoResolver.Close()
		}
	}

	m := metrics.NewMetrics("roas_attribution")

	graphClient := facebook.NewGraphClient(cfg.Facebook.BaseURL, cfg.Facebook.APIVersion, cfg.Facebook.Timeout, logger)
	resolver := facebook.NewResolver(adCache, credStore, graphClient, logger, m)
	waterfall := attribution.NewWaterfall(funnelStore, clickStore, geoResolver, logger, m)
	extractor := order.NewExtractor(logger)
	assembler := report.NewAssembler(logger)
	reports := report.NewService(funnelStore, extractor, waterfall, resolver, assembler, cfg.Report.Timezone, logger, m)

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Reports: reports,
		Config:  cfg,
		Logger:  logger,
		Health:  health,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config

	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch cfg.Log.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}
