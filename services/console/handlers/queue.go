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
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianBridge/internal/backend"
	"github.com/jinterlante1206/AleutianBridge/internal/queue"
	"github.com/jinterlante1206/AleutianBridge/services/console/datatypes"
	"github.com/jinterlante1206/AleutianBridge/services/console/telemetry"
)

// ListQueue proxies the backend queue with optional filtering.
//
// # Description
//
// Accepts the same filter dimensions as the CLI: ?status=, ?sourceType=
// and ?limit=. An unknown status or a non-positive limit is a client
// error; an unknown source type passes through to the backend unchanged,
// since source types grow without a console redeploy.
//
// # Outputs
//
//   - 200 with a datatypes.QueueResponse body.
//   - 400 when ?status= names an unknown status or ?limit= is not a
//     positive integer.
//   - 502 when the backend fetch fails.
func ListQueue(client backend.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter queue.Filter
		if raw := c.Query("status"); raw != "" {
			s := queue.Status(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
					Error: fmt.Sprintf("unknown status %q", raw),
				})
				return
			}
			filter.Status = s
		}
		filter.SourceType = queue.SourceType(c.Query("sourceType"))
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
					Error: fmt.Sprintf("invalid limit %q", raw),
				})
				return
			}
			filter.Limit = limit
		}

		items, err := client.FetchQueue(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{
				Error: "backend fetch failed",
			})
			return
		}

		c.JSON(http.StatusOK, datatypes.QueueResponse{
			Items: items,
			Total: len(items),
		})
	}
}

// BulkApply applies an approve or reject action to a set of queue items.
//
// # Description
//
// Binds a datatypes.BulkActionRequest, fetches the current queue to
// validate ids locally, and drives the mutation through the bulk
// coordinator. Partial failure is a 200 with per-item accounting, not an
// error status; the client decides what to retry.
//
// # Inputs
//
//   - client: backend mutator and queue source.
//   - metrics: telemetry recorder, may be nil.
//   - logger: structured logger, may be nil.
//
// # Outputs
//
//   - 200 with a queue.BulkResult body, ids absent from the queue
//     reported in Failed.
//   - 400 on malformed or invalid request bodies.
//   - 502 when the pre-flight queue fetch fails.
func BulkApply(client backend.Client, metrics *telemetry.Metrics, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		var req datatypes.BulkActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: fmt.Sprintf("invalid request: %v", err),
			})
			return
		}

		ctx := c.Request.Context()
		all, err := client.FetchQueue(ctx, queue.Filter{})
		if err != nil {
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{
				Error: "backend fetch failed",
			})
			return
		}

		byID := make(map[string]queue.Item, len(all))
		for _, item := range all {
			byID[item.ID] = item
		}

		var targets []queue.Item
		var missing []string
		for _, id := range req.IDs {
			if item, ok := byID[id]; ok {
				targets = append(targets, item)
			} else {
				missing = append(missing, id)
			}
		}

		coordinator := queue.NewBulkCoordinator(client, logger)
		result, err := coordinator.ApplyBulk(ctx, targets, queue.BulkAction(req.Action), queue.BulkOptions{
			Priority: req.Priority,
			Reason:   req.Reason,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		for _, id := range missing {
			result.Failed = append(result.Failed, queue.BulkFailure{
				ID:     id,
				Reason: "not found in queue",
			})
		}

		if metrics != nil {
			metrics.RecordBulk(ctx, req.Action, len(result.Succeeded), len(result.Failed))
		}
		logger.Info("bulk action applied",
			"action", req.Action,
			"succeeded", len(result.Succeeded),
			"failed", len(result.Failed),
		)

		c.JSON(http.StatusOK, result)
	}
}
