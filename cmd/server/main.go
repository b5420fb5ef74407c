package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omniops/config"
	"omniops/internal/activity"
	"omniops/internal/cache"
	"omniops/internal/handler"
	"omniops/internal/httpserver"
	"omniops/internal/inference"
	"omniops/internal/optimistic"
	"omniops/internal/repository"
	"omniops/internal/service"
	"omniops/pkg/db"
	"omniops/pkg/logger"
	"omniops/pkg/mq"
	"omniops/pkg/otel"
	redisclient "omniops/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	log.Info("Starting omniops...",
		zap.String("version", version),
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Bool("mq_enabled", cfg.MQ.URL != ""),
		zap.Bool("inference_key_set", cfg.Inference.APIKey != ""),
	)

	shutdownTracing, err := otel.Init(cfg.Otel, version, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, tracing disabled", zap.Error(err))
		shutdownTracing = func() {}
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, dbConn, log); err != nil {
		cancel()
		log.Fatal("Schema migration failed", zap.Error(err))
	}
	cancel()

	// Redis
	rdb := redisclient.NewRedisClient(cfg.Redis, log)
	defer rdb.Close()

	// MQ：没有配置 URL 或连不上时退化为不发布
	var publisher mq.EventPublisher = mq.NopPublisher{}
	var broker httpserver.Connectivity
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Warn("Failed to init MQ publisher, events disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
			broker = p
		}
	}

	// Repositories
	itemRepo := repository.NewItemRepository(dbConn, log)
	formRepo := repository.NewFormRepository(dbConn, log)
	submissionRepo := repository.NewSubmissionRepository(dbConn, log)

	// Caches
	draftStore := cache.NewDraftStore(rdb, cfg.DraftTTL())
	formCache := cache.NewFormCache(rdb, cfg.CacheTTL(), log)
	deduper := cache.NewDeduper(rdb, cfg.DedupTTL(), log)

	// Services
	ai := inference.NewClient(cfg.Inference, log)
	ledger := optimistic.NewLedger(cfg.Forms.LedgerRetention)
	itemService := service.NewItemService(itemRepo, ai, ledger, publisher, log)
	formService := service.NewFormService(draftStore, formRepo, formCache, publisher, log)
	submissionService := service.NewSubmissionService(submissionRepo, deduper, publisher, log)
	dashboardService := service.NewDashboardService(itemService, formRepo, submissionRepo, log)

	// HTTP
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := httpserver.NewRouter(httpserver.Handlers{
		Items:       handler.NewItemHandler(itemService, log),
		Dashboard:   handler.NewDashboardHandler(dashboardService, log),
		Forms:       handler.NewFormHandler(formService, log),
		Submissions: handler.NewSubmissionHandler(submissionService, formService, log),
		AI:          handler.NewAIHandler(ai, log),
		Activity:    handler.NewActivityHandler(activity.NewFeed(rdb, cfg.Activity.Capacity), log),
	}, log, dbConn, broker)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down omniops gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("omniops shutdown complete")
}
