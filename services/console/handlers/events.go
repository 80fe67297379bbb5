// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianBridge/internal/health"
	"github.com/jinterlante1206/AleutianBridge/services/console/telemetry"
)

// keepAliveInterval is how often an SSE comment is sent on an idle stream.
const keepAliveInterval = 15 * time.Second

// StreamFleet streams fleet snapshots over SSE.
//
// # Description
//
// Sends the current snapshot immediately, then one fleet event whenever
// the aggregator produces a new pass. Each client polls the aggregator on
// its own ticker and dedupes on snapshot id, so clients never share a
// subscription and a slow client cannot stall the aggregator. Idle
// streams get a comment keepalive so proxies keep the connection open.
//
// The stream ends when the client disconnects.
//
// # Inputs
//
//   - agg: the running fleet aggregator.
//   - metrics: telemetry recorder, may be nil.
//   - interval: how often to poll for a new snapshot. Zero means 1s.
func StreamFleet(agg *health.Aggregator, metrics *telemetry.Metrics, interval time.Duration) gin.HandlerFunc {
	if interval <= 0 {
		interval = time.Second
	}
	return func(c *gin.Context) {
		SetSSEHeaders(c.Writer)

		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			c.String(http.StatusInternalServerError, "streaming not supported")
			return
		}

		ctx := c.Request.Context()
		if metrics != nil {
			metrics.SSEClientsActive.Add(ctx, 1)
			defer metrics.SSEClientsActive.Add(ctx, -1)
		}

		snap := agg.Snapshot()
		if err := writer.WriteFleet(snap); err != nil {
			return
		}
		lastID := snap.ID

		poll := time.NewTicker(interval)
		defer poll.Stop()
		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-poll.C:
				snap := agg.Snapshot()
				if snap.ID == lastID {
					continue
				}
				if err := writer.WriteFleet(snap); err != nil {
					return
				}
				lastID = snap.ID
				keepAlive.Reset(keepAliveInterval)
			case <-keepAlive.C:
				if err := writer.WriteKeepAlive(); err != nil {
					return
				}
			}
		}
	}
}
