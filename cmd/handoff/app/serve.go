// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/handoff/pkg/api"
	"github.com/stacklok/handoff/pkg/config"
	"github.com/stacklok/handoff/pkg/logger"
	"github.com/stacklok/handoff/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the handoff API server",
	Long: `Start the handoff API server. With --redis-url the service stores its state
in Redis; without it, an in-memory store is used (suitable for development only).`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverReadTimeout      = 10 * time.Second // Enough for headers and cipher payloads
	serverWriteTimeout     = 35 * time.Second // Must be > request timeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis-url", "", "Redis URL (redis://...); in-memory storage when empty")
	serveCmd.Flags().String("base-url", "", "Base URL used to construct share links")
	serveCmd.Flags().String("allowed-origins", "", "Comma-separated CORS origin allowlist, may include *")
	serveCmd.Flags().String("admin-users", "", "Comma-separated admin allowlist, may include *")
	serveCmd.Flags().Int64("max-payload-bytes", config.DefaultMaxPayloadBytes, "Maximum decoded cipher payload size in bytes")
	serveCmd.Flags().Int64("max-ttl", int64(config.DefaultMaxTTL/time.Second), "Maximum share TTL in seconds")
	serveCmd.Flags().Int64("default-ttl", int64(config.DefaultShareTTL/time.Second), "Default share TTL in seconds")

	for _, flag := range []string{
		"address", "redis-url", "base-url", "allowed-origins",
		"admin-users", "max-payload-bytes", "max-ttl", "default-ttl",
	} {
		if err := viper.BindPFlag(flag, serveCmd.Flags().Lookup(flag)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", flag, err)
		}
	}
	if err := config.BindEnv(); err != nil {
		logger.Fatalf("Failed to bind environment variables: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.Load()

	stores, err := storage.NewNamespaces(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Errorf("Failed to close storage: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      api.NewRouter(cfg, stores),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server listening on %s", cfg.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
