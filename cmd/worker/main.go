package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omniops/config"
	"omniops/internal/activity"
	"omniops/internal/cache"
	"omniops/pkg/logger"
	"omniops/pkg/mq"
	redisclient "omniops/pkg/redis"

	"go.uber.org/zap"
)

// worker 消费 omniops.events 上的全部事件，写入最近动态
func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	if cfg.MQ.URL == "" {
		log.Fatal("MQ url is required for the activity worker")
	}

	log.Info("Starting activity worker...",
		zap.String("queue", cfg.Activity.Queue),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	rdb := redisclient.NewRedisClient(cfg.Redis, log)
	defer rdb.Close()

	recorder := activity.NewRecorder(
		activity.NewFeed(rdb, cfg.Activity.Capacity),
		cache.NewDeduper(rdb, time.Hour, log),
		log,
	)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Activity.Queue, "#", log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(recorder.Handle)
	consumer.SetRetryTracker(cache.NewRetryCounter(rdb, time.Hour), cfg.Activity.MaxRetries)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.StartConsuming(ctx); err != nil {
			log.Fatal("Consumer failed", zap.Error(err))
		}
	}()

	log.Info("Activity worker is ready to process messages")

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
		log.Warn("Consumer stopped, channel closed")
	}

	log.Info("Shutting down activity worker gracefully...")
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Consumer did not stop in time")
	}
	log.Info("Activity worker shutdown complete")
}
