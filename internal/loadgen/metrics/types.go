package metrics

import "time"

// Phase names the lifecycle stage a load pass is in. The engine stamps
// the current phase onto every bucket it emits, which is what lets
// running-phase rates be told apart from warm-up and drain traffic.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseWarmup   Phase = "warmup"
	PhaseRunning  Phase = "running"
	PhaseDraining Phase = "draining"
	PhaseDone     Phase = "done"
)

// Snapshot is a point-in-time view of one load pass. RPS prefers the
// running-phase rate when buckets exist, falling back to the overall
// average for passes too short to have emitted any.
type Snapshot struct {
	TotalRequests   int64         `json:"totalRequests"`
	SuccessRequests int64         `json:"successRequests"`
	FailedRequests  int64         `json:"failedRequests"`
	TotalBytes      int64         `json:"totalBytes"`
	Latency         LatencyStats  `json:"latency"`
	RPS             float64       `json:"rps"`
	RunningRPS      float64       `json:"runningRps"`
	ErrorRate       float64       `json:"errorRate"`
	ActiveUsers     int           `json:"activeUsers"`
	CurrentPhase    Phase         `json:"currentPhase"`
	Elapsed         time.Duration `json:"elapsed"`
	StartTime       time.Time     `json:"startTime"`
	Timestamp       time.Time     `json:"timestamp"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}

// LatencyPercentiles holds latency percentile values.
type LatencyPercentiles struct {
	Min time.Duration
	Max time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// TimeBucket is one emitter interval: cumulative totals since pass
// start plus deltas for the interval itself, so a pass produces a
// continuous time series even through quiet stretches. Latencies are
// the pass-wide percentiles at bucket creation time.
type TimeBucket struct {
	Timestamp         time.Time     `json:"timestamp"`
	TotalRequests     int64         `json:"totalRequests"`
	TotalSuccesses    int64         `json:"totalSuccesses"`
	TotalFailures     int64         `json:"totalFailures"`
	TotalBytes        int64         `json:"totalBytes"`
	IntervalRequests  int64         `json:"intervalRequests"`
	IntervalRPS       float64       `json:"intervalRPS"`
	IntervalErrorRate float64       `json:"intervalErrorRate"`
	LatencyMin        time.Duration `json:"latencyMin"`
	LatencyMax        time.Duration `json:"latencyMax"`
	LatencyP50        time.Duration `json:"latencyP50"`
	LatencyP90        time.Duration `json:"latencyP90"`
	LatencyP95        time.Duration `json:"latencyP95"`
	LatencyP99        time.Duration `json:"latencyP99"`
	ActiveUsers       int           `json:"activeUsers"`
	Phase             Phase         `json:"phase"`
}

// PhaseChange records a phase transition and the cumulative request
// count at the moment it happened.
type PhaseChange struct {
	Phase     Phase
	Timestamp time.Time
	Requests  int64
}

// EngineConfig sizes a metrics engine. Histogram bounds are in
// microseconds; the defaults record latencies from 1µs to one hour at
// three significant figures and retain an hour of one-second buckets.
type EngineConfig struct {
	BucketInterval   time.Duration
	MaxBuckets       int
	HistogramMin     int64
	HistogramMax     int64
	HistogramSigFigs int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BucketInterval:   time.Second,
		MaxBuckets:       3600,
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}
