package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sevengram/drover/internal/driver"
	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/loadgen/metrics"
	"github.com/sevengram/drover/internal/report"
)

// Renders the HTML report from synthetic sweep data, for iterating on
// the template without running a sweep.
func main() {
	result := createSampleSweepResult()

	outputPath := "sample-sweep-report.html"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := report.GenerateHTML(result, outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample report generated: %s\n", outputPath)
}

func createSampleSweepResult() *driver.SweepResult {
	now := time.Now()
	start := now.Add(-45 * time.Minute)

	result := &driver.SweepResult{
		Name:      "motor cached read sweep",
		RunID:     uuid.NewString(),
		StartTime: start,
		EndTime:   now,
		Duration:  45 * time.Minute,
	}

	cursor := start
	for concurrency := 50; concurrency <= 500; concurrency += 50 {
		for repetition := 1; repetition <= 3; repetition++ {
			iter := sampleIteration(cursor, concurrency, repetition)
			cursor = iter.EndTime.Add(3 * time.Second)

			result.Iterations = append(result.Iterations, iter)
			result.TotalRuns++
			switch iter.Outcome {
			case driver.OutcomePassed:
				result.Passed++
			case driver.OutcomeFailed:
				result.Failed++
			default:
				result.Skipped++
			}
		}
	}

	return result
}

func sampleIteration(start time.Time, concurrency, repetition int) driver.IterationResult {
	// One readiness failure partway through, so the report shows the
	// failure path too.
	if concurrency == 400 && repetition == 2 {
		return driver.IterationResult{
			RunID:        uuid.NewString(),
			Endpoint:     "motor",
			TypeSelector: "2",
			Concurrency:  concurrency,
			Repetition:   repetition,
			Outcome:      driver.OutcomeFailed,
			StartTime:    start,
			EndTime:      start.Add(12 * time.Second),
			Steps: []driver.StepResult{
				{Step: driver.StepStart, OK: true, Detail: "pid 48213", Duration: 40 * time.Millisecond},
				{Step: driver.StepReady, OK: false, Err: "not ready after 8 attempts", Duration: 10 * time.Second},
				{Step: driver.StepTeardown, OK: true, Detail: "stopped", Duration: 300 * time.Millisecond},
			},
		}
	}

	requests := int64(concurrency) * 20

	// Throughput saturates past 300 users while latency keeps climbing.
	rps := float64(concurrency) * 1.9
	effective := float64(concurrency) * 0.96
	if concurrency > 300 {
		rps = 570 + float64(concurrency-300)*0.12
		effective = float64(concurrency) * 0.88
	}
	rps += float64(repetition-2) * 4.5

	var failed int64
	if concurrency >= 450 {
		failed = requests / 250
	}
	succeeded := requests - failed

	p50 := time.Duration(18+concurrency/12) * time.Millisecond
	p90 := time.Duration(30+concurrency/5) * time.Millisecond
	p95 := time.Duration(40+concurrency/3) * time.Millisecond
	p99 := time.Duration(70+concurrency) * time.Millisecond
	elapsed := time.Duration(float64(requests) / rps * float64(time.Second))

	load := &loadgen.Result{
		Name:            "motor",
		URL:             "http://127.0.0.1:33600/motor?type=2",
		Users:           concurrency,
		RequestsPerUser: 20,
		StartTime:       start.Add(2 * time.Second),
		EndTime:         start.Add(2*time.Second + elapsed),
		Elapsed:         elapsed,
		TotalRequests:   requests,
		Succeeded:       succeeded,
		Failed:          failed,
		BytesReceived:   requests * 312,
		Availability:    float64(succeeded) / float64(requests),
		RPS:             rps,
		RunningRPS:      rps * 1.04,
		Concurrency:     effective,
		Latency: metrics.LatencyStats{
			Min:    9 * time.Millisecond,
			Max:    p99 + 120*time.Millisecond,
			Mean:   time.Duration(float64(p50) * 1.2),
			StdDev: p50 / 2,
			P50:    p50,
			P90:    p90,
			P95:    p95,
			P99:    p99,
			Count:  requests,
		},
	}

	end := load.EndTime.Add(3 * time.Second)
	return driver.IterationResult{
		RunID:        uuid.NewString(),
		Endpoint:     "motor",
		TypeSelector: "2",
		Concurrency:  concurrency,
		Repetition:   repetition,
		Outcome:      driver.OutcomePassed,
		StartTime:    start,
		EndTime:      end,
		LogFile:      fmt.Sprintf("./log/motor_4_%d_20.log", concurrency),
		Load:         load,
		Steps: []driver.StepResult{
			{Step: driver.StepStart, OK: true, Detail: "pid 48213", Duration: 40 * time.Millisecond},
			{Step: driver.StepReady, OK: true, Detail: "ready after 2 attempts in 410ms", Duration: 410 * time.Millisecond},
			{Step: driver.StepWarmup, OK: true, Detail: "status 200 in 1.8s", Duration: 1800 * time.Millisecond},
			{Step: driver.StepLoad, OK: true,
				Detail:   fmt.Sprintf("%d requests, %.2f%% available, %.1f rps", requests, load.Availability*100, rps),
				Duration: elapsed},
			{Step: driver.StepSettle, OK: true, Duration: 2 * time.Second},
			{Step: driver.StepTeardown, OK: true, Detail: "stopped", Duration: 250 * time.Millisecond},
		},
	}
}
