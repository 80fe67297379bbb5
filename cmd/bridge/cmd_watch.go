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
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianBridge/cmd/bridge/config"
	"github.com/jinterlante1206/AleutianBridge/internal/feed"
	"github.com/jinterlante1206/AleutianBridge/internal/queue"
)

// queueView is the reconciled local copy of the backend queue.
//
// All mutations flow through queue.Apply/ApplyAll, whether they arrive
// from the live feed or from a fallback resync.
type queueView struct {
	mu     sync.Mutex
	items  []queue.Item
	filter queue.Filter
}

func (v *queueView) apply(ev queue.ChangeEvent) *queue.ConsistencyWarning {
	v.mu.Lock()
	defer v.mu.Unlock()
	var warn *queue.ConsistencyWarning
	v.items, warn = queue.Apply(v.items, ev, v.filter)
	return warn
}

func (v *queueView) resync(fetched []queue.Item) []*queue.ConsistencyWarning {
	v.mu.Lock()
	defer v.mu.Unlock()
	events := queue.ResyncEvents(v.items, fetched)
	var warnings []*queue.ConsistencyWarning
	v.items, warnings = queue.ApplyAll(v.items, events, v.filter)
	return warnings
}

func (v *queueView) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

// runWatch follows the change feed and keeps a reconciled queue view,
// falling back to polling while the feed is down.
func runWatch(cmd *cobra.Command, args []string) {
	filter, err := parseFilter()
	if err != nil {
		logger.Error("invalid filter", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newBackendClient()
	view := &queueView{filter: filter}

	// Seed the view before following the feed.
	if items, err := client.FetchQueue(ctx, filter); err == nil {
		view.resync(items)
		fmt.Printf("Watching queue (%d items). Ctrl-C to stop.\n", view.size())
	} else {
		logger.Warn("initial queue fetch failed, starting empty", "error", err)
	}

	sup := feed.NewSupervisor(feed.SupervisorConfig{
		PollInterval: config.Global.Fallback.PollInterval,
		OnStateChange: func(from, to feed.ConnState) {
			fmt.Printf("── feed %s → %s\n", from, to)
		},
	}, func(ctx context.Context) error {
		items, err := client.FetchQueue(ctx, filter)
		if err != nil {
			return err
		}
		warnings := view.resync(items)
		logConsistencyWarnings(warnings)
		return nil
	}, logger.Slog())
	defer sup.Close()

	for {
		if err := followFeed(ctx, view, sup); err == nil {
			return // context canceled
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sup.NextBackoff()):
		}
	}
}

// followFeed runs one feed connection to completion. Returns nil when
// ctx ended, an error when the connection died and a retry is due.
func followFeed(ctx context.Context, view *queueView, sup *feed.Supervisor) error {
	sup.ReportReconnecting()
	client := feed.NewClient(config.Global.Backend.FeedURL)
	if err := client.Connect(ctx); err != nil {
		sup.ReportDisconnected(err)
		return err
	}
	defer client.Close()
	sup.ReportConnected()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-client.Events():
			if !ok {
				err := fmt.Errorf("feed closed")
				select {
				case e := <-client.Errors():
					err = e
				default:
				}
				sup.ReportDisconnected(err)
				return err
			}
			if warn := view.apply(ev); warn != nil {
				logger.Warn("inconsistent status transition from backend", "warning", warn.String())
			}
			printEvent(ev, view.size())
		}
	}
}

func printEvent(ev queue.ChangeEvent, total int) {
	switch ev.Type {
	case queue.EventInsert:
		fmt.Printf("+ %s  %s  %q  (%d items)\n", ev.Item.ID, ev.Item.SourceType, ev.Item.Title, total)
	case queue.EventUpdate:
		fmt.Printf("~ %s  %s  (%d items)\n", ev.Item.ID, ev.Item.Status, total)
	case queue.EventDelete:
		fmt.Printf("- %s  (%d items)\n", ev.Item.ID, total)
	}
}

func logConsistencyWarnings(warnings []*queue.ConsistencyWarning) {
	for _, warn := range warnings {
		logger.Warn("inconsistent status transition from backend", "warning", warn.String())
	}
}
