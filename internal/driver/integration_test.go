// Package driver integration tests: full sweeps against live test
// servers with varying behavior.
package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevengram/drover/internal/config"
)

// Target behaviors for different scenarios
type targetBehavior int

const (
	targetNormal targetBehavior = iota
	targetFlaky
	targetSlow
)

// createTarget creates a test server with the given behavior. All
// behaviors answer the readiness probe immediately.
func createTarget(behavior targetBehavior) *httptest.Server {
	var hits atomic.Int64

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"ok"}`)
			return
		}

		count := hits.Add(1)
		switch behavior {
		case targetFlaky:
			// Every 5th data request fails
			time.Sleep(time.Millisecond)
			if count%5 == 0 {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error":"store unavailable"}`)
				return
			}

		case targetSlow:
			time.Sleep(80 * time.Millisecond)

		default:
			time.Sleep(time.Millisecond)
		}

		fmt.Fprint(w, `{"status":"ok","rows":5}`)
	}))
}

// integrationConfig builds a smoke-profile sweep the way the CLI does:
// sparse settings filled in by ApplyDefaults. Delays are shortened so
// tests stay fast.
func integrationConfig(t *testing.T, baseURL string) *config.SweepConfig {
	t.Helper()

	cfg := &config.SweepConfig{
		Target: config.TargetConfig{
			BaseURL:      baseURL,
			Endpoint:     "motor",
			TypeSelector: "0",
		},
		Matrix: config.MatrixConfig{
			Levels:      []int{2, 3},
			Repetitions: 2,
		},
		Load: config.LoadConfig{
			Profile: config.ProfileSmoke,
		},
		Delays: config.DelayConfig{
			Settle:   config.Duration(10 * time.Millisecond),
			Cooldown: config.Duration(10 * time.Millisecond),
		},
		Log: config.LogConfig{
			Dir: t.TempDir(),
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestSweepIntegration_SmokeProfile(t *testing.T) {
	server := createTarget(targetNormal)
	defer server.Close()

	cfg := integrationConfig(t, server.URL)
	require.Equal(t, int64(config.SmokeRequestsPerUser), cfg.Load.RequestsPerUser,
		"Smoke profile should resolve to the smoke request count")

	d, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sweep, err := d.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, sweep.TotalRuns)
	assert.Equal(t, 4, sweep.Passed)
	assert.True(t, sweep.Duration > 0)

	for _, iter := range sweep.Iterations {
		require.NotNil(t, iter.Load, "Iteration %d/%d should carry a load result",
			iter.Concurrency, iter.Repetition)
		assert.Equal(t, int64(iter.Concurrency*config.SmokeRequestsPerUser), iter.Load.TotalRequests)
		assert.Equal(t, 1.0, iter.Load.Availability)
		assert.True(t, iter.Load.RPS > 0, "Should have calculated RPS")
		assert.True(t, iter.Load.Latency.P95 > 0, "Should have latency data")
	}

	t.Logf("Smoke Sweep Results:")
	t.Logf("  Iterations: %d", len(sweep.Iterations))
	t.Logf("  Duration: %v", sweep.Duration)
	t.Logf("  Last P95: %v", sweep.Iterations[len(sweep.Iterations)-1].Load.Latency.P95)
}

func TestSweepIntegration_FlakyTarget(t *testing.T) {
	server := createTarget(targetFlaky)
	defer server.Close()

	cfg := integrationConfig(t, server.URL)
	cfg.Matrix = config.MatrixConfig{Levels: []int{4}, Repetitions: 1}
	cfg.Load.RequestsPerUser = 5

	d, err := New(cfg)
	require.NoError(t, err)

	sweep, err := d.Run(context.Background())
	require.NoError(t, err, "HTTP errors degrade availability, they do not fail the pass")

	iter := sweep.Iterations[0]
	require.NotNil(t, iter.Load)
	assert.Equal(t, OutcomePassed, iter.Outcome)
	assert.True(t, iter.Load.Failed > 0, "Should have some failed requests")
	assert.True(t, iter.Load.Availability < 1.0)
	assert.True(t, iter.Load.Availability > 0.5)

	// Degraded availability shows up in the report block too
	data, err := os.ReadFile(filepath.Join(cfg.Log.Dir, "motor_4_4_5.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Availability:")

	t.Logf("Flaky Target - Availability: %.2f%%, Failed: %d",
		iter.Load.Availability*100, iter.Load.Failed)
}

func TestSweepIntegration_TimedPass(t *testing.T) {
	server := createTarget(targetNormal)
	defer server.Close()

	cfg := integrationConfig(t, server.URL)
	cfg.Matrix = config.MatrixConfig{Levels: []int{2}, Repetitions: 1}
	cfg.Load.RequestsPerUser = 0
	cfg.Load.Duration = config.Duration(300 * time.Millisecond)

	d, err := New(cfg)
	require.NoError(t, err)

	sweep, err := d.Run(context.Background())
	require.NoError(t, err)

	iter := sweep.Iterations[0]
	require.NotNil(t, iter.Load)
	assert.Zero(t, iter.Load.RequestsPerUser)
	assert.True(t, iter.Load.Elapsed >= 300*time.Millisecond, "Should run for the full window")
	assert.True(t, iter.Load.TotalRequests > 0)

	t.Logf("Timed Pass - %d requests in %v", iter.Load.TotalRequests, iter.Load.Elapsed)
}

func TestSweepIntegration_SlowTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping slow target test in short mode")
	}

	server := createTarget(targetSlow)
	defer server.Close()

	cfg := integrationConfig(t, server.URL)
	cfg.Matrix = config.MatrixConfig{Levels: []int{2}, Repetitions: 1}

	d, err := New(cfg)
	require.NoError(t, err)

	sweep, err := d.Run(context.Background())
	require.NoError(t, err)

	iter := sweep.Iterations[0]
	require.NotNil(t, iter.Load)
	assert.True(t, iter.Load.Latency.P95 >= 60*time.Millisecond,
		"P95 should reflect the slow target")

	t.Logf("Slow Target - P95: %v, RPS: %.2f", iter.Load.Latency.P95, iter.Load.RPS)
}
