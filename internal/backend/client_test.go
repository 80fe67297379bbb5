// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/queue"
)

func TestFetchQueue_DecodesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/queue" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"id":"q-2","status":"pending","sourceType":"video"},
			{"id":"q-1","status":"approved","sourceType":"document"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	items, err := c.FetchQueue(context.Background(), queue.Filter{})
	if err != nil {
		t.Fatalf("FetchQueue failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "q-2" || items[1].ID != "q-1" {
		t.Errorf("expected backend order preserved, got %s, %s", items[0].ID, items[1].ID)
	}
}

func TestFetchQueue_SendsFilterParams(t *testing.T) {
	var gotStatus, gotSource string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStatus = r.URL.Query().Get("status")
		gotSource = r.URL.Query().Get("sourceType")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.FetchQueue(context.Background(), queue.Filter{
		Status:     queue.StatusPending,
		SourceType: queue.SourceVideo,
	})
	if err != nil {
		t.Fatalf("FetchQueue failed: %v", err)
	}
	if gotStatus != "pending" {
		t.Errorf("expected status=pending, got %q", gotStatus)
	}
	if gotSource != "video" {
		t.Errorf("expected sourceType=video, got %q", gotSource)
	}
}

func TestFetchQueue_SendsLimitParam(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.FetchQueue(context.Background(), queue.Filter{Limit: 25}); err != nil {
		t.Fatalf("FetchQueue failed: %v", err)
	}
	if gotLimit != "25" {
		t.Errorf("expected limit=25, got %q", gotLimit)
	}
}

func TestFetchQueue_ZeroLimitOmitsParam(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.FetchQueue(context.Background(), queue.Filter{}); err != nil {
		t.Fatalf("FetchQueue failed: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("expected no query params for an unfiltered fetch, got %q", gotQuery)
	}
}

func TestFetchQueue_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database unavailable"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.FetchQueue(context.Background(), queue.Filter{})
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if te.Status != 500 || te.Op != "fetch" {
		t.Errorf("unexpected transport error: %+v", te)
	}
}

func TestApprove_SendsPriority(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	priority := 7
	if err := c.Approve(context.Background(), "q-1", &priority); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if gotPath != "/queue/q-1/approve" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody["priority"] != float64(7) {
		t.Errorf("expected priority 7, got %v", gotBody["priority"])
	}
}

func TestApprove_NoPriorityOmitsField(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.Approve(context.Background(), "q-1", nil); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, ok := gotBody["priority"]; ok {
		t.Error("expected priority to be omitted")
	}
}

func TestReject_SendsReason(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.Reject(context.Background(), "q-9", "duplicate source"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if gotPath != "/queue/q-9/reject" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody["reason"] != "duplicate source" {
		t.Errorf("expected reason forwarded, got %v", gotBody["reason"])
	}
}

func TestMutation_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	err := c.Approve(context.Background(), "missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMutation_TransportFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	err := c.Reject(context.Background(), "q-1", "reason")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}
	if te.Status != 0 {
		t.Errorf("expected zero status for transport failure, got %d", te.Status)
	}
}
