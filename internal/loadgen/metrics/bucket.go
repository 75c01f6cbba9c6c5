package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// interval accumulates request counts between bucket cuts. It is
// written lock-free from the user goroutines and drained by the
// emitter when a bucket is cut.
type interval struct {
	requests  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	bytes     atomic.Int64
}

func (iv *interval) observe(success bool, bytes int64) {
	iv.requests.Add(1)
	iv.bytes.Add(bytes)
	if success {
		iv.successes.Add(1)
	} else {
		iv.failures.Add(1)
	}
}

// drain zeroes the accumulators and reports what the interval held.
func (iv *interval) drain() (requests, failures int64) {
	requests = iv.requests.Swap(0)
	failures = iv.failures.Swap(0)
	iv.successes.Swap(0)
	iv.bytes.Swap(0)
	return requests, failures
}

// BucketStore keeps the emitted time buckets in a fixed-size ring, so
// memory stays bounded no matter how long a pass runs. Once the ring
// fills, the oldest buckets give way to new ones.
type BucketStore struct {
	mu      sync.RWMutex
	ring    []*TimeBucket
	next    int // write position
	filled  int
	size    int
	lastCut time.Time

	window interval
}

// NewBucketStore creates a store holding at most size buckets. With
// one-second buckets, 3600 covers an hour-long pass.
func NewBucketStore(size int) *BucketStore {
	if size <= 0 {
		size = 3600
	}
	return &BucketStore{
		ring:    make([]*TimeBucket, size),
		size:    size,
		lastCut: time.Now(),
	}
}

// RecordRequest adds one request to the open interval. Lock-free; safe
// from every user goroutine.
func (bs *BucketStore) RecordRequest(success bool, bytes int64) {
	bs.window.observe(success, bytes)
}

// CreateBucket cuts the open interval into a bucket and starts the
// next one. Called by the engine's emitter once per interval and a
// final time on Stop.
func (bs *BucketStore) CreateBucket(
	total, succeeded, failed, byteCount int64,
	lat LatencyPercentiles,
	users int,
	phase Phase,
) *TimeBucket {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	now := time.Now()
	reqs, fails := bs.window.drain()

	secs := now.Sub(bs.lastCut).Seconds()
	if secs <= 0 {
		secs = 1.0
	}
	var errRate float64
	if reqs > 0 {
		errRate = float64(fails) / float64(reqs)
	}

	b := &TimeBucket{
		Timestamp:         now,
		TotalRequests:     total,
		TotalSuccesses:    succeeded,
		TotalFailures:     failed,
		TotalBytes:        byteCount,
		IntervalRequests:  reqs,
		IntervalRPS:       float64(reqs) / secs,
		IntervalErrorRate: errRate,
		LatencyMin:        lat.Min,
		LatencyMax:        lat.Max,
		LatencyP50:        lat.P50,
		LatencyP90:        lat.P90,
		LatencyP95:        lat.P95,
		LatencyP99:        lat.P99,
		ActiveUsers:       users,
		Phase:             phase,
	}

	bs.ring[bs.next] = b
	bs.next = (bs.next + 1) % bs.size
	if bs.filled < bs.size {
		bs.filled++
	}
	bs.lastCut = now

	return b
}

// GetBuckets returns the stored buckets oldest first.
func (bs *BucketStore) GetBuckets() []*TimeBucket {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.filled == 0 {
		return nil
	}
	start := 0
	if bs.filled == bs.size {
		// Full ring: the write position is also the oldest entry.
		start = bs.next
	}
	out := make([]*TimeBucket, bs.filled)
	for i := range out {
		out[i] = bs.ring[(start+i)%bs.size]
	}
	return out
}

// GetBucketsForPhase returns the buckets cut during one phase.
func (bs *BucketStore) GetBucketsForPhase(phase Phase) []*TimeBucket {
	var matched []*TimeBucket
	for _, b := range bs.GetBuckets() {
		if b.Phase == phase {
			matched = append(matched, b)
		}
	}
	return matched
}

// GetLatestBucket returns the most recent bucket, or nil before the
// first cut.
func (bs *BucketStore) GetLatestBucket() *TimeBucket {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.filled == 0 {
		return nil
	}
	return bs.ring[(bs.next-1+bs.size)%bs.size]
}

// Count returns the number of stored buckets.
func (bs *BucketStore) Count() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.filled
}

// CalculateRunningRPS averages the per-interval rate over the buckets
// cut while the pass was in its running phase, keeping setup and drain
// time out of the headline number. The second return value is how many
// buckets contributed.
func (bs *BucketStore) CalculateRunningRPS() (float64, int) {
	running := bs.GetBucketsForPhase(PhaseRunning)
	if len(running) == 0 {
		return 0, 0
	}
	var reqs int64
	for _, b := range running {
		reqs += b.IntervalRequests
	}
	return float64(reqs) / float64(len(running)), len(running)
}
