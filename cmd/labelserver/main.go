// Command labelserver serves the label API for the web dashboard.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"s3labels/api"
	"s3labels/config"
	"s3labels/service"
)

func main() {
	cfg := config.Load()
	cfg.SetupLogging()

	backend, err := cfg.NewBackend(context.Background())
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}
	defaultSvc := service.New(backend)

	// requests naming another profile or region get their own backend; only
	// the configured profile and ALLOWED_PROFILES may be selected
	provide := func(ctx context.Context, profile, region string) (*service.Service, error) {
		if err := cfg.CheckProfile(profile); err != nil {
			return nil, err
		}
		if profile == "" && region == "" {
			return defaultSvc, nil
		}
		b, err := cfg.WithProfile(profile, region).NewBackend(ctx)
		if err != nil {
			return nil, err
		}
		return service.New(b), nil
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(api.NewHandler(provide, cfg.Bucket)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("server listening on :%s (bucket=%s)", cfg.Port, cfg.Bucket)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Info("server stopped")
}
