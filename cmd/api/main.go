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

	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/handlers"
	"github.com/vidmeta/backend/internal/middleware"
	"github.com/vidmeta/backend/internal/objectstore"
	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/server"
	"github.com/vidmeta/backend/internal/services"
	"github.com/vidmeta/backend/internal/store"
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
	if err := objects.EnsureBucket(ctx, settings.S3Bucket); err != nil {
		log.Warn("ensure_bucket_failed", "bucket", settings.S3Bucket, "error", err)
	}

	authService := services.NewAuthService(settings)
	metrics := observability.Default()

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    handlers.NewAuthHandler(authService),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		JobsHandler:    handlers.NewJobsHandler(log, st, objects, settings.S3Bucket),
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", settings.APIHost, settings.APIPort),
		Handler: router,
	}

	go func() {
		log.Info("api_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api_serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("api_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("api_shutdown_failed", "error", err)
	}
}
