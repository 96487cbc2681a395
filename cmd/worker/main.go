package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/queue"
	"github.com/spec-kit/user-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	opts := queue.Options{
		Queue:        cfg.Queue.Name,
		MaxRetry:     cfg.Queue.MaxRetry,
		InitialDelay: cfg.Queue.InitialDelay(),
	}

	srv := worker.NewServer(redisOpt, opts, cfg.Queue.Concurrency, logger)
	handler := worker.NewHandler(logger)

	logger.Info("worker started",
		zap.String("queue", opts.QueueName()),
		zap.Int("concurrency", cfg.Queue.Concurrency))

	// Run blocks until SIGINT/SIGTERM and drains in-flight jobs.
	if err := srv.Run(handler); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
