package loadgen_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// createBenchmarkTestServer creates a test HTTP server that counts hits
func createBenchmarkTestServer(hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	}))
}

// createBenchmarkTestPlan creates a plan for benchmark testing
func createBenchmarkTestPlan(serverURL string) *loadgen.Plan {
	return &loadgen.Plan{
		Name:   "benchmark-test",
		Method: "GET",
		URL:    serverURL,
	}
}

func TestNewBenchmark(t *testing.T) {
	e := loadgen.NewBenchmark()
	if e == nil {
		t.Fatal("NewBenchmark() returned nil")
	}
}

func TestBenchmark_Type(t *testing.T) {
	e := loadgen.NewBenchmark()
	if e.Type() != loadgen.TypeBenchmark {
		t.Errorf("Type() = %v, want %v", e.Type(), loadgen.TypeBenchmark)
	}
}

func TestBenchmark_Init_ValidConfig(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           10,
		RequestsPerUser: 20,
	}

	err := e.Init(context.Background(), config)
	if err != nil {
		t.Fatalf("Init() error = %v, want nil", err)
	}
}

func TestBenchmark_Init_InvalidType(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:     loadgen.TypeTimed, // Wrong type
		Users:    10,
		Duration: time.Minute,
	}

	err := e.Init(context.Background(), config)
	if err == nil {
		t.Fatal("Init() expected error for wrong type, got nil")
	}
}

func TestBenchmark_Init_MissingUsers(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           0, // Invalid
		RequestsPerUser: 20,
	}

	err := e.Init(context.Background(), config)
	if err == nil {
		t.Fatal("Init() expected error for zero users, got nil")
	}
}

func TestBenchmark_Init_MissingRequestsPerUser(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           10,
		RequestsPerUser: 0, // Invalid
	}

	err := e.Init(context.Background(), config)
	if err == nil {
		t.Fatal("Init() expected error for zero requestsPerUser, got nil")
	}
}

func TestBenchmark_Init_NegativeRequestsPerUser(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           10,
		RequestsPerUser: -5, // Invalid
	}

	err := e.Init(context.Background(), config)
	if err == nil {
		t.Fatal("Init() expected error for negative requestsPerUser, got nil")
	}
}

func TestBenchmark_Run_ExactRequestCount(t *testing.T) {
	var hits atomic.Int64
	server := createBenchmarkTestServer(&hits)
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           4,
		RequestsPerUser: 25,
	}

	err := e.Init(context.Background(), config)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = e.Run(ctx, scheduler, metricsEngine)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The whole point of the benchmark executor: exactly users * requestsPerUser
	// requests reach the target, no more, no less.
	if got := hits.Load(); got != 100 {
		t.Errorf("Server hits = %d, want 100", got)
	}

	stats := e.GetStats()
	if stats.Requests != 100 {
		t.Errorf("Stats.Requests = %d, want 100", stats.Requests)
	}
	if stats.TotalRequests != 100 {
		t.Errorf("Stats.TotalRequests = %d, want 100", stats.TotalRequests)
	}

	snapshot := metricsEngine.GetSnapshot()
	if snapshot.TotalRequests != 100 {
		t.Errorf("Metrics TotalRequests = %d, want 100", snapshot.TotalRequests)
	}
	if snapshot.SuccessRequests != 100 {
		t.Errorf("Metrics SuccessRequests = %d, want 100", snapshot.SuccessRequests)
	}
}

func TestBenchmark_Run_SingleUser(t *testing.T) {
	var hits atomic.Int64
	server := createBenchmarkTestServer(&hits)
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           1,
		RequestsPerUser: 5,
	}

	if err := e.Init(context.Background(), config); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := e.Run(context.Background(), scheduler, metricsEngine); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := hits.Load(); got != 5 {
		t.Errorf("Server hits = %d, want 5", got)
	}
	if stats := e.GetStats(); stats.TargetUsers != 1 {
		t.Errorf("TargetUsers = %d, want 1", stats.TargetUsers)
	}
}

func TestBenchmark_Run_FailedRequestsStillCounted(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           2,
		RequestsPerUser: 10,
	}

	if err := e.Init(context.Background(), config); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Failures don't shrink the quota: every planned request is issued
	if err := e.Run(context.Background(), scheduler, metricsEngine); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := hits.Load(); got != 20 {
		t.Errorf("Server hits = %d, want 20", got)
	}

	snapshot := metricsEngine.GetSnapshot()
	if snapshot.FailedRequests != 20 {
		t.Errorf("FailedRequests = %d, want 20", snapshot.FailedRequests)
	}
	if snapshot.SuccessRequests != 0 {
		t.Errorf("SuccessRequests = %d, want 0", snapshot.SuccessRequests)
	}
}

func TestBenchmark_Run_WithPacing(t *testing.T) {
	var hits atomic.Int64
	server := createBenchmarkTestServer(&hits)
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           1,
		RequestsPerUser: 3,
		Pacing: &loadgen.PacingConfig{
			Type:     loadgen.PacingConstant,
			Duration: 50 * time.Millisecond,
		},
	}

	if err := e.Init(context.Background(), config); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	start := time.Now()
	if err := e.Run(context.Background(), scheduler, metricsEngine); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	// 3 requests with 2 pacing gaps between them
	if got := hits.Load(); got != 3 {
		t.Errorf("Server hits = %d, want 3", got)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Run() elapsed = %v, want >= 100ms (pacing)", elapsed)
	}
}

func TestBenchmark_GetProgress_BeforeRun(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           2,
		RequestsPerUser: 10,
	}

	_ = e.Init(context.Background(), config)

	progress := e.GetProgress()
	if progress != 0.0 {
		t.Errorf("Before Run(), GetProgress() = %v, want 0.0", progress)
	}
}

func TestBenchmark_GetProgress_AfterRun(t *testing.T) {
	server := createBenchmarkTestServer(nil)
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           1,
		RequestsPerUser: 4,
	}

	_ = e.Init(context.Background(), config)
	_ = e.Run(context.Background(), scheduler, metricsEngine)

	progress := e.GetProgress()
	if progress != 1.0 {
		t.Errorf("After Run(), GetProgress() = %v, want 1.0", progress)
	}
}

func TestBenchmark_GetActiveUsers_AfterRun(t *testing.T) {
	server := createBenchmarkTestServer(nil)
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           2,
		RequestsPerUser: 2,
	}

	_ = e.Init(context.Background(), config)
	_ = e.Run(context.Background(), scheduler, metricsEngine)

	if active := e.GetActiveUsers(); active != 0 {
		t.Errorf("After Run(), GetActiveUsers() = %d, want 0", active)
	}
}

func TestBenchmark_Run_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           2,
		RequestsPerUser: 1000, // Far more than can finish
	}

	if err := e.Init(context.Background(), config); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var runErr error
	go func() {
		runErr = e.Run(ctx, scheduler, metricsEngine)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// An interrupted pass reports the cancellation
		if runErr == nil {
			t.Error("Run() error = nil after cancel, want context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not complete after cancel")
	}

	if progress := e.GetProgress(); progress >= 1.0 {
		t.Errorf("Cancelled pass GetProgress() = %v, want < 1.0", progress)
	}
}

func TestBenchmark_Stop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           2,
		RequestsPerUser: 1000,
		GracefulStop:    2 * time.Second,
	}

	if err := e.Init(context.Background(), config); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	done := make(chan struct{})
	var runErr error
	go func() {
		runErr = e.Run(context.Background(), scheduler, metricsEngine)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-done:
		// Stop is a deliberate end, not a failure
		if runErr != nil {
			t.Errorf("Run() error after Stop() = %v, want nil", runErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not complete after Stop()")
	}
}

func TestBenchmark_Stop_BeforeRun(t *testing.T) {
	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           2,
		RequestsPerUser: 10,
	}

	_ = e.Init(context.Background(), config)

	// Stop before Run should not panic
	err := e.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() before Run() error = %v", err)
	}
}

func TestBenchmark_MetricsPhase(t *testing.T) {
	server := createBenchmarkTestServer(nil)
	defer server.Close()

	metricsEngine := metrics.NewEngine()
	defer metricsEngine.Stop()

	plan := createBenchmarkTestPlan(server.URL)
	scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

	e := loadgen.NewBenchmark()

	config := &loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           1,
		RequestsPerUser: 2,
	}

	_ = e.Init(context.Background(), config)
	_ = e.Run(context.Background(), scheduler, metricsEngine)

	if phase := metricsEngine.GetPhase(); phase != metrics.PhaseDone {
		t.Errorf("After Run(), phase = %v, want %v", phase, metrics.PhaseDone)
	}
}

func TestBenchmark_Interface(t *testing.T) {
	var _ loadgen.Executor = (*loadgen.Benchmark)(nil)
}

// Benchmark for the benchmark executor itself
func BenchmarkBenchmark_Run(b *testing.B) {
	server := createBenchmarkTestServer(nil)
	defer server.Close()

	for i := 0; i < b.N; i++ {
		metricsEngine := metrics.NewEngine()

		plan := createBenchmarkTestPlan(server.URL)
		scheduler := loadgen.NewScheduler(plan, metricsEngine, loadgen.DefaultClientConfig())

		e := loadgen.NewBenchmark()
		config := &loadgen.Config{
			Type:            loadgen.TypeBenchmark,
			Users:           2,
			RequestsPerUser: 10,
		}
		_ = e.Init(context.Background(), config)
		_ = e.Run(context.Background(), scheduler, metricsEngine)

		metricsEngine.Stop()
	}
}
