package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/vidmeta/backend/internal/clients/awsx"
	"github.com/vidmeta/backend/internal/clients/redisx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/orchestrator"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/queue"
	"github.com/vidmeta/backend/internal/store"
	"github.com/vidmeta/backend/internal/stream"
)

func main() {
	settings := config.Load()

	log, err := logger.New(settings.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisx.New(settings.RedisURL)
	if err != nil {
		log.Error("redis_init_failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	st, err := store.New(ctx, settings, log)
	if err != nil {
		log.Error("store_init_failed", "error", err)
		os.Exit(1)
	}

	var jobsQueue queue.Queue
	switch settings.QueueBackend {
	case "sqs":
		cfg, err := awsx.Load(ctx, settings)
		if err != nil {
			log.Error("aws_config_failed", "error", err)
			os.Exit(1)
		}
		if settings.SQSJobsQueueURL == "" {
			log.Error("missing_sqs_jobs_queue_url")
			os.Exit(1)
		}
		jobsQueue = queue.NewSQSQueue(sqs.NewFromConfig(cfg), settings.SQSJobsQueueURL)
	default:
		jobsQueue = queue.NewRedisQueue(rdb, settings.RedisJobsQueue)
	}

	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "orchestrator-" + uuid.NewString()[:8]
	}

	events := stream.New(rdb, settings.RedisEventsStream)
	orch := orchestrator.New(log, events, st, jobsQueue, consumer)

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("orchestrator_exited", "error", err)
		os.Exit(1)
	}
	log.Info("orchestrator_stopped")
}
