// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/vtour/internal/api"
	"github.com/tomtom215/vtour/internal/backend"
	"github.com/tomtom215/vtour/internal/cache"
	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/imagecache"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/supervisor"
	"github.com/tomtom215/vtour/internal/supervisor/services"
	ws "github.com/tomtom215/vtour/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)

	logging.Info().
		Str("backend_url", cfg.Backend.URL).
		Str("environment", cfg.Server.Environment).
		Dur("response_cache_ttl", cfg.Cache.TTL).
		Msg("Starting vtour server")

	// SIGINT/SIGTERM cancel ctx, which stops the whole supervisor tree.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewCircuitBreakerClient(&cfg.Backend)
	respCache := cache.New(cfg.Cache.TTL)

	images, err := imagecache.Open(&cfg.Images)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open image cache")
	}
	defer func() {
		if err := images.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing image cache")
		}
	}()

	wsHub := ws.NewHub()

	handler := api.NewHandler(cfg, client, respCache, images, wsHub)
	router := api.NewRouter(handler, &cfg.Security)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// Bridges zerolog to slog for sutureslog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if respCache.Enabled() {
		tree.AddCacheService(respCache)
	}
	tree.AddCacheService(images)
	tree.AddMessagingService(wsHub)
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped")
}
