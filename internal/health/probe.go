// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package health

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
	"github.com/jinterlante1206/AleutianBridge/internal/ident"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Prober performs a single point-in-time health probe.
//
// # Description
//
// A probe is one HTTP GET against the service's health endpoint. A 2xx
// response with a readable body means healthy; any other response, an
// unreadable body, a transport failure, or a timeout means unhealthy.
// Services without a health endpoint are reported as unknown without a
// network call.
//
// # Limitations
//
//   - Binary outcome per probe; trend analysis lives in the aggregator
//   - No retries; the scheduler provides the cadence
//
// # Assumptions
//
//   - A returned Record is always non-nil, even on error
type Prober interface {
	// Probe checks one service and returns its record.
	Probe(ctx context.Context, svc catalog.Descriptor) Record

	// ProbeAll checks all services concurrently, preserving input order.
	ProbeAll(ctx context.Context, services []catalog.Descriptor) []Record
}

// ProbeHTTPClient abstracts the HTTP transport so tests can stub
// responses without a listener.
type ProbeHTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// DEFAULT IMPLEMENTATION
// =============================================================================

// DefaultProber implements Prober against live HTTP endpoints.
//
// # Thread Safety
//
// Safe for concurrent use.
type DefaultProber struct {
	httpClient ProbeHTTPClient
	config     ProbeConfig

	// scrapeMetrics enables the optional metrics-endpoint scrape on
	// healthy probes.
	scrapeMetrics bool
}

// NewDefaultProber creates a production prober.
func NewDefaultProber(config ProbeConfig) *DefaultProber {
	return &DefaultProber{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
	}
}

// NewDefaultProberWithHTTPClient injects a custom HTTP client, used in
// tests to mock responses.
func NewDefaultProberWithHTTPClient(config ProbeConfig, client ProbeHTTPClient) *DefaultProber {
	return &DefaultProber{
		config:     config,
		httpClient: client,
	}
}

// EnableMetricsScrape turns on the metrics-endpoint scrape for services
// that declare one.
func (p *DefaultProber) EnableMetricsScrape() {
	p.scrapeMetrics = true
}

// Probe checks one service.
//
// # Inputs
//
//   - ctx: cancellation; the probe timeout is layered on top
//   - svc: catalog entry to probe
//
// # Outputs
//
//   - Record: outcome with state, latency, and HTTP status
func (p *DefaultProber) Probe(ctx context.Context, svc catalog.Descriptor) Record {
	rec := Record{
		ID:    ident.GenerateID(),
		Slug:  svc.Slug,
		Title: svc.Title,
		Tier:  svc.Category,
	}

	url := svc.HealthURL()
	if url == "" {
		rec.State = StateUnknown
		rec.Message = "no health endpoint"
		return rec
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		rec.State = StateUnhealthy
		rec.Message = fmt.Sprintf("failed to create request: %v", err)
		rec.CheckedAt = time.Now()
		return rec
	}

	resp, err := p.httpClient.Do(req)
	rec.Latency = time.Since(start)
	rec.CheckedAt = time.Now()
	if err != nil {
		rec.State = StateUnhealthy
		rec.Message = fmt.Sprintf("request failed: %v", err)
		return rec
	}
	defer resp.Body.Close()

	rec.HTTPStatus = resp.StatusCode
	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		rec.State = StateUnhealthy
		rec.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	case !drainBody(resp.Body):
		// A 2xx whose body cannot be read is a half-dead service.
		rec.State = StateUnhealthy
		rec.Message = fmt.Sprintf("HTTP %d, unreadable body", resp.StatusCode)
	default:
		rec.State = StateHealthy
		rec.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	if p.scrapeMetrics && rec.State == StateHealthy {
		if metricsURL := svc.MetricsURL(); metricsURL != "" {
			rec.Metrics = p.scrape(ctx, metricsURL)
		}
	}

	return rec
}

// ProbeAll checks all services concurrently.
//
// # Description
//
// Each service is probed in its own goroutine. Results preserve input
// order regardless of completion order.
func (p *DefaultProber) ProbeAll(ctx context.Context, services []catalog.Descriptor) []Record {
	if len(services) == 0 {
		return []Record{}
	}

	results := make([]Record, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(idx int, d catalog.Descriptor) {
			defer wg.Done()
			results[idx] = p.Probe(ctx, d)
		}(i, svc)
	}
	wg.Wait()
	return results
}

// drainBody reads the response body to completion, capped at 64KiB.
// An empty body is readable; a mid-stream read error is not.
func drainBody(r io.Reader) bool {
	_, err := io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	return err == nil
}

// scrape fetches a flat key=value metrics document. Failures are
// silent; metrics are display garnish, not health signal.
func (p *DefaultProber) scrape(ctx context.Context, url string) map[string]string {
	scrapeCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(scrapeCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	return parseFlatMetrics(resp.Body)
}

// parseFlatMetrics reads "key value" or "key=value" lines, skipping
// comments and anything with labels.
func parseFlatMetrics(r io.Reader) map[string]string {
	metrics := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var key, value string
		if i := strings.IndexAny(line, " \t="); i > 0 {
			key = line[:i]
			value = strings.TrimSpace(strings.TrimLeft(line[i:], " \t="))
		}
		if key == "" || value == "" || strings.ContainsAny(key, "{}") {
			continue
		}
		metrics[key] = value
	}
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

// =============================================================================
// MOCK IMPLEMENTATION
// =============================================================================

// MockProber is a configurable Prober for tests.
//
// # Examples
//
//	mock := &MockProber{
//	    ProbeFunc: func(ctx context.Context, svc catalog.Descriptor) Record {
//	        return Record{Slug: svc.Slug, State: StateHealthy}
//	    },
//	}
type MockProber struct {
	ProbeFunc    func(ctx context.Context, svc catalog.Descriptor) Record
	ProbeAllFunc func(ctx context.Context, services []catalog.Descriptor) []Record

	ProbeCalls    []catalog.Descriptor
	ProbeAllCalls [][]catalog.Descriptor
	mu            sync.Mutex
}

// Probe implements Prober for MockProber.
func (m *MockProber) Probe(ctx context.Context, svc catalog.Descriptor) Record {
	m.mu.Lock()
	m.ProbeCalls = append(m.ProbeCalls, svc)
	m.mu.Unlock()

	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, svc)
	}
	return Record{
		ID:        ident.GenerateID(),
		Slug:      svc.Slug,
		Title:     svc.Title,
		Tier:      svc.Category,
		State:     StateHealthy,
		CheckedAt: time.Now(),
	}
}

// ProbeAll implements Prober for MockProber.
func (m *MockProber) ProbeAll(ctx context.Context, services []catalog.Descriptor) []Record {
	m.mu.Lock()
	m.ProbeAllCalls = append(m.ProbeAllCalls, services)
	m.mu.Unlock()

	if m.ProbeAllFunc != nil {
		return m.ProbeAllFunc(ctx, services)
	}
	records := make([]Record, len(services))
	for i, svc := range services {
		records[i] = m.Probe(ctx, svc)
	}
	return records
}

var _ Prober = (*DefaultProber)(nil)
var _ Prober = (*MockProber)(nil)
