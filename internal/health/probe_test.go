// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
)

// mockHTTPClient stubs ProbeHTTPClient.
type mockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func httpResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func descriptor(slug string, tier catalog.Tier) catalog.Descriptor {
	return catalog.Descriptor{
		Slug:     slug,
		Title:    slug,
		Category: tier,
		Endpoints: []catalog.Endpoint{
			{Port: 8080, Path: "/health", Role: catalog.RoleHealth},
		},
	}
}

func TestProbe_Healthy(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return httpResponse(200, "ok"), nil
		},
	}
	prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)

	rec := prober.Probe(context.Background(), descriptor("grafana", catalog.TierObservability))
	if rec.State != StateHealthy {
		t.Errorf("expected healthy, got %s (%s)", rec.State, rec.Message)
	}
	if rec.HTTPStatus != 200 {
		t.Errorf("expected HTTP 200 recorded, got %d", rec.HTTPStatus)
	}
	if rec.CheckedAt.IsZero() {
		t.Error("expected CheckedAt to be set")
	}
}

func TestProbe_Any2xxIsHealthy(t *testing.T) {
	for _, code := range []int{200, 201, 204, 299} {
		client := &mockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return httpResponse(code, ""), nil
			},
		}
		prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)
		rec := prober.Probe(context.Background(), descriptor("svc", catalog.TierData))
		if rec.State != StateHealthy {
			t.Errorf("HTTP %d: expected healthy, got %s", code, rec.State)
		}
	}
}

// brokenReader fails mid-stream, like a connection cut during the body.
type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("connection reset")
}

func TestProbe_UnreadableBodyIsUnhealthy(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(brokenReader{}),
			}, nil
		},
	}
	prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)

	rec := prober.Probe(context.Background(), descriptor("svc", catalog.TierData))
	if rec.State != StateUnhealthy {
		t.Errorf("expected unhealthy for unreadable body, got %s", rec.State)
	}
	if rec.HTTPStatus != 200 {
		t.Errorf("expected HTTP 200 recorded, got %d", rec.HTTPStatus)
	}
	if !strings.Contains(rec.Message, "unreadable body") {
		t.Errorf("expected body failure in message, got %q", rec.Message)
	}
}

func TestProbe_Non2xxIsUnhealthy(t *testing.T) {
	for _, code := range []int{301, 401, 404, 500, 503} {
		client := &mockHTTPClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return httpResponse(code, ""), nil
			},
		}
		prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)
		rec := prober.Probe(context.Background(), descriptor("svc", catalog.TierData))
		if rec.State != StateUnhealthy {
			t.Errorf("HTTP %d: expected unhealthy, got %s", code, rec.State)
		}
		if rec.HTTPStatus != code {
			t.Errorf("HTTP %d: expected status recorded, got %d", code, rec.HTTPStatus)
		}
	}
}

func TestProbe_TransportFailureIsUnhealthy(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)

	rec := prober.Probe(context.Background(), descriptor("svc", catalog.TierBus))
	if rec.State != StateUnhealthy {
		t.Errorf("expected unhealthy, got %s", rec.State)
	}
	if rec.HTTPStatus != 0 {
		t.Errorf("expected zero HTTP status, got %d", rec.HTTPStatus)
	}
}

func TestProbe_NoHealthEndpointIsUnknown(t *testing.T) {
	called := false
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			called = true
			return httpResponse(200, ""), nil
		},
	}
	prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)

	svc := catalog.Descriptor{
		Slug:     "artifact-ui",
		Title:    "Artifact Browser",
		Category: catalog.TierUI,
		Endpoints: []catalog.Endpoint{
			{Port: 8090, Path: "/", Role: catalog.RoleUI},
		},
	}
	rec := prober.Probe(context.Background(), svc)
	if rec.State != StateUnknown {
		t.Errorf("expected unknown, got %s", rec.State)
	}
	if called {
		t.Error("expected no HTTP request for service without a health endpoint")
	}
}

func TestProbe_RespectsTimeout(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		},
	}
	prober := NewDefaultProberWithHTTPClient(ProbeConfig{Timeout: 50 * time.Millisecond}, client)

	start := time.Now()
	rec := prober.Probe(context.Background(), descriptor("slow", catalog.TierLLM))
	if rec.State != StateUnhealthy {
		t.Errorf("expected unhealthy on timeout, got %s", rec.State)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("probe took %v, expected timeout near 50ms", elapsed)
	}
}

func TestProbeAll_PreservesOrder(t *testing.T) {
	client := &mockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return httpResponse(200, ""), nil
		},
	}
	prober := NewDefaultProberWithHTTPClient(DefaultProbeConfig(), client)

	services := []catalog.Descriptor{
		descriptor("alpha", catalog.TierData),
		descriptor("beta", catalog.TierBus),
		descriptor("gamma", catalog.TierGPU),
	}
	records := prober.ProbeAll(context.Background(), services)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if records[i].Slug != want {
			t.Errorf("position %d: expected %q, got %q", i, want, records[i].Slug)
		}
	}
}

func TestParseFlatMetrics(t *testing.T) {
	doc := `# comment line
uptime_seconds 4821
queue_depth=17
labeled{service="x"} 1

badline
`
	metrics := parseFlatMetrics(strings.NewReader(doc))
	if metrics["uptime_seconds"] != "4821" {
		t.Errorf("expected uptime_seconds=4821, got %q", metrics["uptime_seconds"])
	}
	if metrics["queue_depth"] != "17" {
		t.Errorf("expected queue_depth=17, got %q", metrics["queue_depth"])
	}
	if _, ok := metrics[`labeled{service="x"}`]; ok {
		t.Error("expected labeled metrics to be skipped")
	}
	if len(metrics) != 2 {
		t.Errorf("expected 2 metrics, got %d: %v", len(metrics), metrics)
	}
}
