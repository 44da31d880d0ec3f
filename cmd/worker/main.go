package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"github.com/vidmeta/backend/internal/clients/awsx"
	"github.com/vidmeta/backend/internal/clients/eventbridgex"
	"github.com/vidmeta/backend/internal/clients/redisx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/objectstore"
	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/probe"
	"github.com/vidmeta/backend/internal/queue"
	"github.com/vidmeta/backend/internal/store"
	"github.com/vidmeta/backend/internal/summarize"
	"github.com/vidmeta/backend/internal/worker"
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

	st, err := store.New(ctx, settings, log)
	if err != nil {
		log.Error("store_init_failed", "error", err)
		os.Exit(1)
	}

	objects, err := objectstore.New(ctx, settings, log)
	if err != nil {
		log.Error("object_store_init_failed", "error", err)
		os.Exit(1)
	}

	var jobsQueue queue.Queue
	var dlq queue.DLQ
	switch settings.QueueBackend {
	case "sqs":
		cfg, err := awsx.Load(ctx, settings)
		if err != nil {
			log.Error("aws_config_failed", "error", err)
			os.Exit(1)
		}
		if settings.SQSJobsQueueURL == "" || settings.SQSDLQURL == "" {
			log.Error("missing_sqs_queue_urls")
			os.Exit(1)
		}
		client := sqs.NewFromConfig(cfg)
		jobsQueue = queue.NewSQSQueue(client, settings.SQSJobsQueueURL)
		dlq = queue.NewSQSDLQ(client, settings.SQSDLQURL)
	default:
		rdb, err := redisx.New(settings.RedisURL)
		if err != nil {
			log.Error("redis_init_failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		jobsQueue = queue.NewRedisQueue(rdb, settings.RedisJobsQueue)
		dlq = queue.NewRedisDLQ(rdb, settings.RedisDLQ)
	}

	var publisher worker.Publisher
	switch {
	case settings.EventbusURL != "":
		publisher = worker.NewIngressPublisher(settings.EventbusURL)
	case settings.AppEnv == "aws":
		bridge, err := eventbridgex.New(ctx, settings)
		if err != nil {
			log.Error("eventbridge_init_failed", "error", err)
			os.Exit(1)
		}
		publisher = worker.NewBridgePublisher(bridge)
	default:
		publisher = worker.NoopPublisher{}
	}

	metrics := observability.Default()
	metricsSrv := metrics.ServeMetrics(settings.WorkerMetricsPort)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	tools := probe.New()
	summarizer := summarize.New(ctx, settings, log)

	w := worker.New(
		log,
		st,
		jobsQueue,
		dlq,
		objects,
		tools.Probe,
		summarizer,
		publisher,
		metrics,
		settings.WorkerMaxAttempts,
		settings.WorkerBackoff(),
	)

	concurrency := settings.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	log.Info("worker_pool_starting", "concurrency", concurrency, "queue_backend", settings.QueueBackend)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker_exited", "error", err)
		os.Exit(1)
	}
	log.Info("worker_stopped")
}
