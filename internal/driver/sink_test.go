package driver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/loadgen/metrics"
)

func TestLogFile(t *testing.T) {
	tests := []struct {
		name        string
		endpoint    string
		workers     int
		concurrency int
		requests    int
		expected    string
	}{
		{"plain", "motor", 4, 100, 20, "motor_4_100_20.log"},
		{"another endpoint", "amysql", 4, 1000, 20, "amysql_4_1000_20.log"},
		{"slash becomes underscore", "api/motor", 2, 50, 2, "api_motor_2_50_2.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFile("./log", tt.endpoint, tt.workers, tt.concurrency, tt.requests)
			want := filepath.Join("./log", tt.expected)
			if got != want {
				t.Errorf("LogFile = %q, want %q", got, want)
			}
		})
	}
}

func sinkDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := New(sweepConfig(t, "http://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return d
}

func TestAppendReport_Accumulates(t *testing.T) {
	d := sinkDriver(t)
	path := filepath.Join(d.cfg.Log.Dir, "motor_4_50_20.log")

	result := &loadgen.Result{
		Name:          "motor",
		URL:           "http://127.0.0.1:33600/motor?type=0",
		Users:         50,
		StartTime:     time.Now(),
		Elapsed:       time.Second,
		TotalRequests: 100,
		Succeeded:     100,
		Availability:  1.0,
	}

	if err := d.appendReport(path, result); err != nil {
		t.Fatalf("First append returned error: %v", err)
	}
	if err := d.appendReport(path, result); err != nil {
		t.Fatalf("Second append returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Report file missing: %v", err)
	}
	if got := countRuleLines(string(data)); got != 2 {
		t.Errorf("Report blocks = %d, want 2", got)
	}
}

func TestRecordOutcome_TrimsTimeSeries(t *testing.T) {
	d := sinkDriver(t)

	iter := IterationResult{
		RunID:       "run-1",
		Endpoint:    "motor",
		Concurrency: 50,
		Repetition:  1,
		Outcome:     OutcomePassed,
		Load: &loadgen.Result{
			TotalRequests: 100,
			TimeSeries:    []*metrics.TimeBucket{{}},
		},
	}

	d.recordOutcome(&iter)

	data, err := os.ReadFile(filepath.Join(d.cfg.Log.Dir, "outcomes.jsonl"))
	if err != nil {
		t.Fatalf("Outcome file missing: %v", err)
	}

	line := strings.TrimSpace(string(data))
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("Outcome line does not parse: %v", err)
	}

	load, ok := decoded["load"].(map[string]interface{})
	if !ok {
		t.Fatal("Outcome line missing load object")
	}
	if _, present := load["timeSeries"]; present {
		t.Error("Time series should be trimmed from outcome lines")
	}

	// The caller's result is untouched
	if iter.Load.TimeSeries == nil {
		t.Error("Trimming must not mutate the original result")
	}
}

func TestRecordOutcome_AbsolutePath(t *testing.T) {
	d := sinkDriver(t)
	outDir := t.TempDir()
	d.cfg.Log.OutcomeFile = filepath.Join(outDir, "sweep-outcomes.jsonl")

	iter := IterationResult{RunID: "run-2", Endpoint: "motor", Outcome: OutcomeFailed}
	d.recordOutcome(&iter)

	if _, err := os.Stat(d.cfg.Log.OutcomeFile); err != nil {
		t.Errorf("Absolute outcome path not honored: %v", err)
	}
}
