package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidmeta/backend/internal/clients/redisx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/eventbus"
	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
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

	events := stream.New(rdb, settings.RedisEventsStream)
	svc := eventbus.NewService(log, events)
	router := eventbus.NewRouter(svc, observability.Default())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", settings.EventbusPort),
		Handler: router,
	}

	go func() {
		log.Info("eventbus_listening", "addr", srv.Addr, "stream", settings.RedisEventsStream)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("eventbus_serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("eventbus_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("eventbus_shutdown_failed", "error", err)
	}
}
