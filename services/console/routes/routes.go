// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianBridge/internal/backend"
	"github.com/jinterlante1206/AleutianBridge/internal/health"
	"github.com/jinterlante1206/AleutianBridge/services/console/handlers"
	"github.com/jinterlante1206/AleutianBridge/services/console/telemetry"
)

// SetupRoutes wires the console API onto the router.
func SetupRoutes(router *gin.Engine, agg *health.Aggregator, client backend.Client,
	metrics *telemetry.Metrics, logger *slog.Logger) {

	router.GET("/health", handlers.HealthCheck)

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/fleet", handlers.GetFleet(agg))
		v1.GET("/queue", handlers.ListQueue(client))
		v1.POST("/queue/bulk", handlers.BulkApply(client, metrics, logger))
		v1.GET("/events", handlers.StreamFleet(agg, metrics, time.Second))
	}
}
