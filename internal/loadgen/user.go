package loadgen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
	"github.com/sevengram/drover/pkg/jsonpath"
)

// UserState tracks where a user is in its lifecycle. Idle and running
// alternate while a pass is active; stopping and stopped are terminal.
type UserState int32

const (
	UserIdle UserState = iota
	UserRunning
	UserStopping
	UserStopped
)

var userStateNames = [...]string{"idle", "running", "stopping", "stopped"}

func (s UserState) String() string {
	if s < 0 || int(s) >= len(userStateNames) {
		return "unknown"
	}
	return userStateNames[s]
}

// User is one simulated client. An executor owns a pool of users and
// drives each from its own goroutine; the lifecycle state is atomic so
// both sides can poll it without locks.
//
// ID, Plan, Client, and Metrics are fixed at construction and must not
// be mutated afterwards.
type User struct {
	ID      int
	Plan    *Plan
	Client  *http.Client
	Metrics *metrics.Engine

	state     atomic.Int32
	iterCount atomic.Int64
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewUser builds a user around a plan. The client is normally shared by
// the whole pool so connections get reused across users.
func NewUser(id int, plan *Plan, client *http.Client, engine *metrics.Engine) *User {
	return &User{
		ID:      id,
		Plan:    plan,
		Client:  client,
		Metrics: engine,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// GetState returns the user's current lifecycle state.
func (u *User) GetState() UserState {
	return UserState(u.state.Load())
}

// GetIteration returns how many iterations the user has started.
func (u *User) GetIteration() int64 {
	return u.iterCount.Load()
}

// RunIteration runs one request from the plan and records what happened.
//
// Request failures are recorded in the metrics engine, not returned. An
// error means the user cannot continue, either because the context was
// cancelled or because a stop is pending.
func (u *User) RunIteration(ctx context.Context) error {
	if s := u.GetState(); s >= UserStopping {
		return fmt.Errorf("user %d: already %s", u.ID, s)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-u.stopCh:
		return fmt.Errorf("user %d: stop pending", u.ID)
	default:
	}

	u.state.Store(int32(UserRunning))
	u.iterCount.Add(1)
	defer u.state.Store(int32(UserIdle))

	res := u.doRequest(ctx)
	u.Metrics.RecordLatency(res.Duration, res.Success(), res.BytesReceived)

	// A transport error caused by cancellation ends the user, not just
	// the one request.
	if res.Error != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// doRequest performs one exchange against the plan's URL. Timing covers
// the whole exchange, body read included.
func (u *User) doRequest(ctx context.Context) *RequestResult {
	res := &RequestResult{
		UserID:    u.ID,
		Iteration: u.iterCount.Load(),
		StartTime: time.Now(),
	}
	defer func() {
		res.EndTime = time.Now()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}()

	req, err := http.NewRequestWithContext(ctx, u.Plan.Method, u.Plan.URL, nil)
	if err != nil {
		res.Error = fmt.Errorf("build request: %w", err)
		return res
	}
	for name, value := range u.Plan.Headers {
		req.Header.Set(name, value)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read response body: %w", err)
		return res
	}
	res.BytesReceived = int64(len(body))

	u.checkBody(res, body)
	return res
}

// checkBody evaluates the plan's JSONPath expectations against the
// response body. Responses that already failed on status are left alone.
func (u *User) checkBody(res *RequestResult, body []byte) {
	if len(u.Plan.Check) == 0 || res.StatusCode >= 400 {
		return
	}
	if jsonpath.Expect(string(body), u.Plan.Check) != nil {
		res.CheckFailed = true
	}
}

// RequestStop asks the user to wind down after the request in flight.
// Safe to call repeatedly; only the first transition closes the stop
// channel.
func (u *User) RequestStop() {
	for _, from := range [...]UserState{UserRunning, UserIdle} {
		if u.state.CompareAndSwap(int32(from), int32(UserStopping)) {
			close(u.stopCh)
			return
		}
	}
}

// WaitForStop blocks until the user has fully stopped or the timeout
// elapses, and reports whether the stop happened in time.
func (u *User) WaitForStop(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-u.doneCh:
		return true
	case <-timer.C:
		return false
	}
}

// MarkStopped moves the user to its terminal state and releases
// WaitForStop callers. Executors call it as each user goroutine exits;
// repeat calls are no-ops.
func (u *User) MarkStopped() {
	if u.state.Swap(int32(UserStopped)) != int32(UserStopped) {
		close(u.doneCh)
	}
}
