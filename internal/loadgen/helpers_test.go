package loadgen_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// Fixtures shared by the user, executor, and scheduler tests. Servers
// register with t.Cleanup so tests never leak listeners.

// testServer answers every request with a fixed status and body.
func testServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// countingServer answers every request with the given status and bumps
// hits per request.
func countingServer(t *testing.T, status int, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		io.WriteString(w, `{"status": "ok"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// slowServer answers 200 after sitting on each request for delay.
func slowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// planFor wraps a URL in a minimal GET plan.
func planFor(url string) *loadgen.Plan {
	return &loadgen.Plan{Name: "bench", Method: "GET", URL: url}
}

// newRig builds the scheduler and engine a pass needs, pointed at srv.
func newRig(t *testing.T, srv *httptest.Server) (*loadgen.Scheduler, *metrics.Engine) {
	t.Helper()
	eng := metrics.NewEngine()
	t.Cleanup(eng.Stop)
	sched := loadgen.NewScheduler(planFor(srv.URL), eng, loadgen.DefaultClientConfig())
	t.Cleanup(func() { sched.Shutdown(time.Second) })
	return sched, eng
}
