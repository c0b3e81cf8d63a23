package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"patas/internal/devserver"
	"patas/internal/platform/config"
	"patas/internal/platform/logger"
	"patas/internal/platform/metrics"
)

// main wires the demo backend and keeps the server lifecycle small.
func main() {
	cfg := config.ServerFromEnv()
	log := logger.New()

	log.Info("initializing patas-api",
		"addr", cfg.Addr,
		"access_ttl", cfg.AccessTTL.String(),
		"refresh_ttl", cfg.RefreshTTL.String(),
	)

	registry := prometheus.NewRegistry()

	store := devserver.NewStore()
	store.Seed()

	tokens := devserver.NewTokenService(cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	handler, err := devserver.NewHandler(cfg, store, tokens, log, metrics.New(registry))
	if err != nil {
		log.Error("handler setup failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           devserver.NewRouter(handler, log, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
