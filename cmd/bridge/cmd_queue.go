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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianBridge/cmd/bridge/config"
	"github.com/jinterlante1206/AleutianBridge/internal/backend"
	"github.com/jinterlante1206/AleutianBridge/internal/queue"
)

// newBackendClient builds the queue backend client from config.
func newBackendClient() *backend.DefaultClient {
	return backend.NewClient(config.Global.Backend.BaseURL, config.Global.Backend.RequestTimeout)
}

// parseFilter validates the --status and --source flags.
func parseFilter() (queue.Filter, error) {
	var f queue.Filter
	if queueStatus != "" {
		s := queue.Status(queueStatus)
		if !s.Valid() {
			return f, fmt.Errorf("unknown status %q (known: %v)", queueStatus, queue.KnownStatuses())
		}
		f.Status = s
	}
	if queueSourceType != "" {
		f.SourceType = queue.SourceType(queueSourceType)
	}
	if queueLimit < 0 {
		return f, fmt.Errorf("limit must not be negative, got %d", queueLimit)
	}
	f.Limit = queueLimit
	return f, nil
}

// runQueueList fetches and prints the queue.
func runQueueList(cmd *cobra.Command, args []string) {
	filter, err := parseFilter()
	if err != nil {
		logger.Error("invalid filter", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Global.Backend.RequestTimeout)
	defer cancel()

	items, err := newBackendClient().FetchQueue(ctx, filter)
	if err != nil {
		logger.Error("failed to fetch queue", "error", err)
		os.Exit(1)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(items) == 0 {
		fmt.Println("Queue is empty.")
		return
	}
	fmt.Printf("%-18s %-11s %-11s %-4s %s\n", "ID", "STATUS", "SOURCE", "PRI", "TITLE")
	for _, item := range items {
		fmt.Printf("%-18s %-11s %-11s %-4d %s\n",
			item.ID, item.Status, item.SourceType, item.Priority, item.Title)
	}
	fmt.Printf("\n%d items\n", len(items))
}

// runQueueApprove approves the listed item ids.
func runQueueApprove(cmd *cobra.Command, args []string) {
	opts := queue.BulkOptions{}
	if approvePriority > 0 {
		p := approvePriority
		opts.Priority = &p
	}
	runBulk(args, queue.BulkApprove, opts)
}

// runQueueReject rejects the listed item ids.
func runQueueReject(cmd *cobra.Command, args []string) {
	runBulk(args, queue.BulkReject, queue.BulkOptions{Reason: rejectReason})
}

// runBulk resolves ids against the live queue and drives the bulk
// coordinator. Ids that don't exist are reported as failures without
// aborting the rest.
func runBulk(ids []string, action queue.BulkAction, opts queue.BulkOptions) {
	client := newBackendClient()

	ctx, cancel := context.WithTimeout(context.Background(),
		config.Global.Backend.RequestTimeout*time.Duration(len(ids)+1))
	defer cancel()

	all, err := client.FetchQueue(ctx, queue.Filter{})
	if err != nil {
		logger.Error("failed to fetch queue", "error", err)
		os.Exit(1)
	}
	byID := make(map[string]queue.Item, len(all))
	for _, item := range all {
		byID[item.ID] = item
	}

	var targets []queue.Item
	var missing []string
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			targets = append(targets, item)
		} else {
			missing = append(missing, id)
		}
	}

	coordinator := queue.NewBulkCoordinator(client, logger.Slog())
	coordinator.SetProgressFunc(func(done, total int) {
		logger.Debug("bulk progress", "done", done, "total", total)
	})

	result, err := coordinator.ApplyBulk(ctx, targets, action, opts)
	if err != nil {
		logger.Error("bulk operation failed", "error", err)
		os.Exit(1)
	}
	for _, id := range missing {
		result.Failed = append(result.Failed, queue.BulkFailure{ID: id, Reason: "not found in queue"})
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("%s: %d succeeded, %d failed (%.1fs)\n",
			action, len(result.Succeeded), len(result.Failed), result.Duration.Seconds())
		for _, f := range result.Failed {
			fmt.Printf("  ✗ %s: %s\n", f.ID, f.Reason)
		}
	}
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}

// runQueueExport writes the queue as CSV to stdout or a file.
func runQueueExport(cmd *cobra.Command, args []string) {
	filter, err := parseFilter()
	if err != nil {
		logger.Error("invalid filter", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Global.Backend.RequestTimeout)
	defer cancel()

	items, err := newBackendClient().FetchQueue(ctx, filter)
	if err != nil {
		logger.Error("failed to fetch queue", "error", err)
		os.Exit(1)
	}

	out := os.Stdout
	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			logger.Error("failed to create export file", "path", exportPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := queue.ExportCSV(out, items); err != nil {
		logger.Error("failed to write CSV", "error", err)
		os.Exit(1)
	}
	if exportPath != "" {
		fmt.Printf("Exported %d items to %s\n", len(items), exportPath)
	}
}
