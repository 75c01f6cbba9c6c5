package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

func testConsole(buf *bytes.Buffer, quiet bool) *Console {
	return NewConsole(ConsoleConfig{
		Writer:  buf,
		Quiet:   quiet,
		NoColor: true,
	})
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer

	console := NewConsole(ConsoleConfig{Writer: &buf})
	if console == nil {
		t.Fatal("NewConsole returned nil")
	}

	// Should not be TTY when writing to a buffer
	if console.IsTTY() {
		t.Error("Expected non-TTY when writing to buffer")
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		progress float64
		width    int
	}{
		{0.0, 20},
		{0.5, 20},
		{1.0, 20},
		{1.7, 30},
	}

	for _, tt := range tests {
		result := renderProgressBar(tt.progress, tt.width)

		if !strings.HasPrefix(result, "[") || !strings.HasSuffix(result, "]") {
			t.Errorf("Progress bar should be wrapped in brackets: %q", result)
		}

		// Count runes (not bytes) because the bar uses multi-byte
		// characters
		runeCount := len([]rune(result))
		if runeCount != tt.width+2 {
			t.Errorf("Progress bar rune count = %d, want %d", runeCount, tt.width+2)
		}
	}
}

func TestConsole_StartPass(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, false)

	console.StartPass("motor", 50, 1, 0, 60)

	line := buf.String()
	if !strings.Contains(line, "motor c=50 rep=1") {
		t.Errorf("StartPass line = %q, want endpoint and shape", line)
	}
	if !strings.Contains(line, "1/60") {
		t.Errorf("StartPass line = %q, want pass counter", line)
	}
}

func TestConsole_PassDone(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, false)

	console.PassDone(3, 60, 100, 2, "passed", "1,000 requests, 100.00% available, 232.0 rps")

	line := buf.String()
	if !strings.Contains(line, "✓") {
		t.Errorf("Passed line = %q, want success icon", line)
	}
	if !strings.Contains(line, "c=100 rep=2") {
		t.Errorf("Passed line = %q, want shape", line)
	}
	if !strings.Contains(line, "232.0 rps") {
		t.Errorf("Passed line = %q, want detail", line)
	}
}

func TestConsole_PassDone_Failed(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, false)

	console.PassDone(4, 60, 100, 3, "failed", "ready: service not ready after 30 attempts")

	line := buf.String()
	if !strings.Contains(line, "✗") {
		t.Errorf("Failed line = %q, want failure icon", line)
	}
	if !strings.Contains(line, "service not ready") {
		t.Errorf("Failed line = %q, want failure detail", line)
	}
}

func TestConsole_Quiet(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, true)

	console.SweepHeader(&SweepInfo{Endpoint: "motor", TotalRuns: 60})
	console.StartPass("motor", 50, 1, 0, 60)
	console.Update(&LiveStats{Progress: 0.5, TargetUsers: 50})
	console.PassDone(1, 60, 50, 1, "passed", "ok")

	if buf.Len() != 0 {
		t.Errorf("Quiet mode should suppress chrome, got %q", buf.String())
	}

	// Failures still appear
	console.PassDone(2, 60, 50, 2, "failed", "load: connection refused")
	if !strings.Contains(buf.String(), "connection refused") {
		t.Error("Quiet mode should still report failures")
	}
}

func TestConsole_Update_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, false)

	console.Update(&LiveStats{
		Progress:    0.52,
		Elapsed:     10 * time.Second,
		ActiveUsers: 5,
		TargetUsers: 50,
		Requests:    520,
		RPS:         121.3,
		Errors:      0,
		LatencyP95:  310 * time.Millisecond,
	})

	line := buf.String()
	if strings.Contains(line, cursorUp) {
		t.Error("Non-TTY update should not move the cursor")
	}
	for _, want := range []string{"52%", "users 5/50", "reqs 520", "121.3 rps", "p95 310ms"} {
		if !strings.Contains(line, want) {
			t.Errorf("Update line = %q, want %q", line, want)
		}
	}
}

func TestConsole_Update_TTYRedraws(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(ConsoleConfig{
		Writer:   &buf,
		NoColor:  true,
		ForceTTY: true,
	})

	console.Update(&LiveStats{Progress: 0.1, TargetUsers: 50})
	first := buf.String()
	if strings.Contains(first, cursorUp) {
		t.Error("First update has no live lines to erase")
	}
	if !strings.Contains(first, "[") {
		t.Error("TTY update should render a progress bar")
	}

	console.Update(&LiveStats{Progress: 0.2, TargetUsers: 50})
	if !strings.Contains(buf.String(), cursorUp) {
		t.Error("Second update should erase the previous live lines")
	}

	buf.Reset()
	console.EndPass()
	if !strings.Contains(buf.String(), clearLine) {
		t.Error("EndPass should clear the live lines")
	}
}

func TestConsole_SweepHeader(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, false)

	levels := make([]int, 0, 20)
	for c := 50; c <= 1000; c += 50 {
		levels = append(levels, c)
	}

	console.SweepHeader(&SweepInfo{
		Endpoint:     "motor",
		TypeSelector: "2",
		TargetURL:    "http://127.0.0.1:33600/motor",
		Levels:       levels,
		Repetitions:  3,
		TotalRuns:    60,
		Profile:      "bench",
		Requests:     20,
		Managed:      true,
		Warmup:       true,
	})

	header := buf.String()
	wants := []string{
		"drover sweep",
		"motor (type 2)",
		"http://127.0.0.1:33600/motor",
		"50..1000 step 50 (20 levels)",
		"3 (60 passes)",
		"bench, 20 requests per user",
		"managed per pass",
		"warm-up",
	}
	for _, want := range wants {
		if !strings.Contains(header, want) {
			t.Errorf("Header missing %q:\n%s", want, header)
		}
	}
}

func TestConsole_SweepSummary(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, false)

	console.SweepSummary(&SweepStats{
		TotalRuns:   60,
		Passed:      58,
		Failed:      2,
		Duration:    32 * time.Minute,
		LogDir:      "./log",
		OutcomeFile: "./log/outcomes.jsonl",
		Levels: []LevelStat{
			{Concurrency: 50, Loads: 3, RPS: 95.0, P99: 180 * time.Millisecond, Availability: 1.0},
			{Concurrency: 100, Loads: 3, RPS: 170.4, P99: 240 * time.Millisecond, Availability: 0.98},
		},
	})

	summary := buf.String()
	for _, want := range []string{
		"FAILED", "58 of 60 passes", "32m 00s", "./log",
		"rps", "95.0", "180ms", "240ms", "98.0%",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q:\n%s", want, summary)
		}
	}
}

func TestConsole_SweepSummary_Quiet(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, true)

	console.SweepSummary(&SweepStats{
		TotalRuns: 60,
		Passed:    60,
		Duration:  30 * time.Minute,
	})

	summary := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(summary, "PASSED") {
		t.Errorf("Quiet summary = %q, want PASSED verdict", summary)
	}
	if strings.Count(summary, "\n") != 0 {
		t.Errorf("Quiet summary should be one line, got %q", summary)
	}
}

func TestConsole_Errorln(t *testing.T) {
	var buf bytes.Buffer
	console := testConsole(&buf, true)

	console.Errorln("config: matrix.start must be > 0")

	if !strings.Contains(buf.String(), "error: config: matrix.start must be > 0") {
		t.Errorf("Errorln output = %q", buf.String())
	}
}

func TestLevelsSummary(t *testing.T) {
	tests := []struct {
		name     string
		levels   []int
		expected string
	}{
		{"empty", nil, "none"},
		{"single", []int{250}, "250"},
		{"uniform", []int{50, 100, 150, 200}, "50..200 step 50 (4 levels)"},
		{"irregular", []int{10, 20, 100}, "3 levels (10..100)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := levelsSummary(tt.levels)
			if result != tt.expected {
				t.Errorf("levelsSummary(%v) = %q, want %q", tt.levels, result, tt.expected)
			}
		})
	}
}

func TestStatsFromSnapshot(t *testing.T) {
	if got := StatsFromSnapshot(nil, 0.5, 50); got != nil {
		t.Errorf("StatsFromSnapshot(nil) = %+v, want nil", got)
	}

	snapshot := &metrics.Snapshot{
		TotalRequests:  520,
		FailedRequests: 2,
		ErrorRate:      0.0038,
		RPS:            121.3,
		ActiveUsers:    50,
		Elapsed:        10 * time.Second,
		Latency: metrics.LatencyStats{
			Mean: 150 * time.Millisecond,
			P95:  310 * time.Millisecond,
		},
	}

	stats := StatsFromSnapshot(snapshot, 0.52, 50)
	if stats.Progress != 0.52 {
		t.Errorf("Progress = %v, want 0.52", stats.Progress)
	}
	if stats.Requests != 520 {
		t.Errorf("Requests = %d, want 520", stats.Requests)
	}
	if stats.Errors != 2 {
		t.Errorf("Errors = %d, want 2", stats.Errors)
	}
	if stats.TargetUsers != 50 {
		t.Errorf("TargetUsers = %d, want 50", stats.TargetUsers)
	}
	if stats.LatencyP95 != 310*time.Millisecond {
		t.Errorf("LatencyP95 = %v, want 310ms", stats.LatencyP95)
	}
}
