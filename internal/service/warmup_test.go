package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sevengram/drover/internal/config"
)

func TestWarmup(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/motor" {
			t.Errorf("Expected path /motor, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("type") != "0" {
			t.Errorf("Expected type=0, got type=%s", r.URL.Query().Get("type"))
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("Expected X-Api-Key header, got %q", r.Header.Get("X-Api-Key"))
		}
		w.Write([]byte("warm"))
	}))
	defer server.Close()

	target := config.TargetConfig{
		BaseURL:  server.URL,
		Endpoint: "motor",
		Headers:  map[string]string{"X-Api-Key": "secret"},
	}
	cfg := config.WarmupConfig{TypeValue: "0", Retries: 3}

	result, err := Warmup(context.Background(), target, cfg)
	if err != nil {
		t.Fatalf("Error warming up: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected exactly one warm-up request, got %d", hits.Load())
	}
	if !strings.Contains(result.URL, "type=0") {
		t.Errorf("Expected warm-up URL to carry type=0, got %s", result.URL)
	}
	if result.Duration <= 0 {
		t.Errorf("Expected positive duration, got %v", result.Duration)
	}
}

func TestWarmup_RetriesServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "cold", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("warm"))
	}))
	defer server.Close()

	target := config.TargetConfig{BaseURL: server.URL, Endpoint: "motor"}
	cfg := config.WarmupConfig{TypeValue: "0", Retries: 2}

	result, err := Warmup(context.Background(), target, cfg)
	if err != nil {
		t.Fatalf("Error warming up: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after retry, got %d", result.StatusCode)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", hits.Load())
	}
}

func TestWarmup_ReportsNon2xx(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such endpoint", http.StatusNotFound)
	}))
	defer server.Close()

	target := config.TargetConfig{BaseURL: server.URL, Endpoint: "missing"}
	cfg := config.WarmupConfig{TypeValue: "0", Retries: 3}

	result, err := Warmup(context.Background(), target, cfg)
	if err != nil {
		t.Fatalf("Expected non-2xx to be reported, not an error, got %v", err)
	}
	if result.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", result.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected no retries on 404, got %d attempts", hits.Load())
	}
}

func TestWarmup_ExhaustedStillReturnsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "still cold", http.StatusInternalServerError)
	}))
	defer server.Close()

	target := config.TargetConfig{BaseURL: server.URL, Endpoint: "motor"}
	cfg := config.WarmupConfig{TypeValue: "0", Retries: 1}

	result, err := Warmup(context.Background(), target, cfg)
	if err != nil {
		t.Fatalf("Expected the final 500 to be reported, not an error, got %v", err)
	}
	if result.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", result.StatusCode)
	}
}

func TestWarmup_InvalidBaseURL(t *testing.T) {
	target := config.TargetConfig{BaseURL: "://bad", Endpoint: "motor"}

	_, err := Warmup(context.Background(), target, config.WarmupConfig{TypeValue: "0"})
	if err == nil {
		t.Fatal("Expected error for invalid base URL, got nil")
	}
}
