package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"

	"github.com/sevengram/drover/internal/config"
	"github.com/sevengram/drover/internal/httpx"
)

// WarmupResult records the outcome of the warm-up request.
type WarmupResult struct {
	URL        string
	StatusCode int
	Duration   time.Duration
}

// Warmup issues one logical GET against the target endpoint to prime
// it, using cfg.TypeValue as the type parameter. Transient failures
// are retried with exponential backoff. A non-2xx final answer is
// reported in the result, not as an error; only building the request
// or exhausting the transport is an error.
func Warmup(ctx context.Context, target config.TargetConfig, cfg config.WarmupConfig) (*WarmupResult, error) {
	warmupURL, err := httpx.BuildURL(target.BaseURL, target.Endpoint, url.Values{"type": {cfg.TypeValue}})
	if err != nil {
		return nil, err
	}

	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = cfg.Retries
	if client.MaxRetries < 1 {
		client.MaxRetries = 1
	}
	client.LogHook = func(e pester.ErrEntry) {
		log.WithFields(log.Fields{
			"url":     e.URL,
			"attempt": e.Attempt,
			"error":   e.Err,
		}).Warn("Retrying warm-up request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, warmupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build warm-up request: %w", err)
	}
	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("warm-up request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	result := &WarmupResult{
		URL:        warmupURL,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}

	log.WithFields(log.Fields{
		"url":      warmupURL,
		"status":   resp.StatusCode,
		"duration": result.Duration.Round(time.Millisecond),
	}).Debug("Warm-up request finished")

	return result, nil
}
