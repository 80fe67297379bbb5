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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	verbose    bool
	jsonOutput bool

	// queue filters
	queueStatus     string
	queueSourceType string
	queueLimit      int

	// mutations
	approvePriority int
	rejectReason    string

	// export
	exportPath string

	rootCmd = &cobra.Command{
		Use:   "bridge",
		Short: "A cli to monitor the fleet and work the ingest queue",
		Long: `Bridge is the operator console for a local service fleet:
				it aggregates service health into tier rollups and keeps a
				live, reconciled view of the backend's ingest queue.`,
	}

	// --- Fleet health ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Probe every catalog service once and show tier health rollups",
		Run:   runStatus, // Defined in cmd_status.go
	}

	// --- Queue ---
	queueCmd = &cobra.Command{
		Use:   "queue",
		Short: "Inspect and act on the ingest queue",
	}
	queueListCmd = &cobra.Command{
		Use:   "list",
		Short: "List queue items, optionally filtered by status or source type",
		Run:   runQueueList, // Defined in cmd_queue.go
	}
	queueApproveCmd = &cobra.Command{
		Use:   "approve [id...]",
		Short: "Approve pending queue items",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQueueApprove, // Defined in cmd_queue.go
	}
	queueRejectCmd = &cobra.Command{
		Use:   "reject [id...]",
		Short: "Reject pending queue items",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQueueReject, // Defined in cmd_queue.go
	}
	queueExportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the queue to CSV",
		Run:   runQueueExport, // Defined in cmd_queue.go
	}

	// --- Live view ---
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow the queue change feed, with fallback polling while degraded",
		Run:   runWatch, // Defined in cmd_watch.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")

	queueListCmd.Flags().StringVar(&queueStatus, "status", "",
		"Filter by status (pending, approved, rejected, processing, completed, failed)")
	queueListCmd.Flags().StringVar(&queueSourceType, "source", "",
		"Filter by source type (video, document, link, upload, notebook, chat-import, feed)")
	queueListCmd.Flags().IntVar(&queueLimit, "limit", 0,
		"Cap the number of items fetched (0 fetches everything)")
	queueExportCmd.Flags().StringVar(&queueStatus, "status", "",
		"Filter by status before exporting")
	queueExportCmd.Flags().StringVar(&queueSourceType, "source", "",
		"Filter by source type before exporting")
	queueExportCmd.Flags().IntVar(&queueLimit, "limit", 0,
		"Cap the number of items exported (0 exports everything)")
	queueExportCmd.Flags().StringVarP(&exportPath, "output", "o", "",
		"Write CSV to a file instead of stdout")
	queueApproveCmd.Flags().IntVar(&approvePriority, "priority", 0,
		"Processing priority to set on approval (0 leaves the backend default)")
	queueRejectCmd.Flags().StringVar(&rejectReason, "reason", "",
		"Reason recorded with the rejection")
	watchCmd.Flags().StringVar(&queueStatus, "status", "",
		"Filter the watched view by status")
	watchCmd.Flags().StringVar(&queueSourceType, "source", "",
		"Filter the watched view by source type")

	queueCmd.AddCommand(queueListCmd, queueApproveCmd, queueRejectCmd, queueExportCmd)
	rootCmd.AddCommand(statusCmd, queueCmd, watchCmd)
}
