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

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianBridge/internal/health"
)

// GetFleet returns the latest fleet snapshot.
//
// # Description
//
// Serves whatever the aggregator last produced without triggering a new
// probe pass. Before the first pass completes this is an all-unknown
// snapshot, which the client renders as "checking" rather than an error.
//
// # Inputs
//
//   - agg: the running fleet aggregator.
//
// # Outputs
//
//   - 200 with a health.Snapshot body.
func GetFleet(agg *health.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := agg.Snapshot()
		c.JSON(http.StatusOK, snap)
	}
}
