package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixzhu97/orderflow/internal/notification"
	notificationkafka "github.com/felixzhu97/orderflow/internal/notification/kafka"
	"github.com/felixzhu97/orderflow/pkg/config"
	"github.com/felixzhu97/orderflow/pkg/idempotency"
	"github.com/felixzhu97/orderflow/pkg/logging"
	"github.com/felixzhu97/orderflow/pkg/shutdown"
	"github.com/felixzhu97/orderflow/pkg/tracing"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	stopTracing, err := tracing.Init(ctx, "notification-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		gctx, gcancel := shutdown.Grace(5 * time.Second)
		defer gcancel()
		_ = stopTracing(gctx)
	}()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	consumer := notificationkafka.NewConsumer(
		log,
		cfg.KafkaBrokers,
		cfg.NotificationTopic,
		"notification-worker",
		idempotency.NewStore(rdb, cfg.IdempotencyTTL),
		notification.NewLogDeliverer(log),
	)

	log.Info("notification worker running", "topic", cfg.NotificationTopic)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
