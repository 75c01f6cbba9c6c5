package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/sevengram/drover/internal/config"
	"github.com/sevengram/drover/internal/httpx"
	"github.com/sevengram/drover/pkg/jsonpath"
)

// ProbeResult records how readiness was established.
type ProbeResult struct {
	Attempts int
	Elapsed  time.Duration
	Response *httpx.Response
}

// WaitReady polls url until the service answers ready: a 2xx status
// whose body satisfies every configured expectation. Attempts are
// spaced by exponential backoff and bounded by cfg.MaxAttempts and
// cfg.Timeout. The returned error names the last observed failure.
func WaitReady(ctx context.Context, client *httpx.Client, url string, cfg config.ReadinessConfig) (*ProbeResult, error) {
	if client == nil {
		client = httpx.NewClient(httpx.WithTimeout(2 * time.Second))
	}

	if timeout := cfg.Timeout.GetDuration(0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	result := &ProbeResult{}
	start := time.Now()

	check := func() error {
		result.Attempts++
		resp, err := client.Get(ctx, url)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return fmt.Errorf("readiness endpoint returned %s", resp.Status)
		}
		if len(cfg.Expect) > 0 {
			if err := jsonpath.Expect(resp.BodyString(), cfg.Expect); err != nil {
				return err
			}
		}
		result.Response = resp
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	// The context deadline bounds the wait; MaxElapsedTime would cut
	// it short independently.
	policy.MaxElapsedTime = 0

	err := backoff.Retry(check, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxAttempts-1)), ctx))
	result.Elapsed = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("service not ready after %d attempts in %s: %w",
			result.Attempts, result.Elapsed.Round(time.Millisecond), err)
	}

	log.WithFields(log.Fields{
		"url":      url,
		"attempts": result.Attempts,
		"elapsed":  result.Elapsed.Round(time.Millisecond),
	}).Debug("Service ready")

	return result, nil
}
