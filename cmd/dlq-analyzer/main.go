package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/vidmeta/backend/internal/clients/awsx"
	"github.com/vidmeta/backend/internal/clients/redisx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/queue"
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

	var dlq queue.DLQ
	switch settings.QueueBackend {
	case "sqs":
		cfg, err := awsx.Load(ctx, settings)
		if err != nil {
			log.Error("aws_config_failed", "error", err)
			os.Exit(1)
		}
		if settings.SQSDLQURL == "" {
			log.Error("missing_sqs_dlq_url")
			os.Exit(1)
		}
		dlq = queue.NewSQSDLQ(sqs.NewFromConfig(cfg), settings.SQSDLQURL)
	default:
		rdb, err := redisx.New(settings.RedisURL)
		if err != nil {
			log.Error("redis_init_failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		dlq = queue.NewRedisDLQ(rdb, settings.RedisDLQ)
	}

	analyzer := worker.NewAnalyzer(log, dlq, observability.Default(), settings.ReportsDir)
	path, err := analyzer.Run(ctx)
	if err != nil {
		log.Error("dlq_analysis_failed", "error", err)
		os.Exit(1)
	}
	log.Info("dlq_analysis_complete", "report", path)
}
