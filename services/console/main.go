// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/jinterlante1206/AleutianBridge/internal/backend"
	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
	"github.com/jinterlante1206/AleutianBridge/internal/health"
	"github.com/jinterlante1206/AleutianBridge/services/console/routes"
	"github.com/jinterlante1206/AleutianBridge/services/console/telemetry"
)

func main() {
	port := os.Getenv("CONSOLE_PORT")
	if port == "" {
		port = "12300"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.ServiceName = "console-service"
	shutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatalf("failed to setup telemetry: %v", err)
	}
	defer shutdown(context.Background())

	metrics, err := telemetry.NewMetrics(otel.Meter("console"))
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "/app/catalog.yaml"
	}

	services, err := catalog.Load(catalogPath)
	if err != nil {
		// A console without a catalog still serves the queue API.
		slog.Warn("failed to load service catalog, fleet view will be empty",
			"path", catalogPath, "error", err)
	}

	backendURL := strings.Trim(os.Getenv("BACKEND_URL"), "\"' ")
	if backendURL == "" {
		backendURL = "http://localhost:8080"
	}
	client := backend.NewClient(backendURL, 10*time.Second)

	prober := health.NewDefaultProber(health.DefaultProbeConfig())
	agg := health.NewAggregator(prober, services, health.DefaultAggregatorConfig(), logger)
	agg.SetSnapshotHandler(func(snap health.Snapshot) {
		metrics.ObserveSnapshot(context.Background(), snap)
	})

	watcher, err := catalog.NewWatcher(catalogPath, agg.SetServices, logger)
	if err != nil {
		slog.Warn("catalog watcher unavailable, edits require a restart", "error", err)
	} else if err := watcher.Start(ctx); err != nil {
		slog.Warn("catalog watcher failed to start", "error", err)
	} else {
		defer watcher.Stop()
	}

	go agg.Run(ctx)

	router := gin.Default()
	router.Use(otelgin.Middleware("console-service"))

	routes.SetupRoutes(router, agg, client, metrics, logger)

	log.Println("Starting the console server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
