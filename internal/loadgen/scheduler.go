package loadgen

import (
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// Scheduler manages the pool of simulated users for one pass.
//
// It owns the shared HTTP client (connection pooling across users is what
// makes high concurrency affordable) and coordinates shutdown.
type Scheduler struct {
	plan    *Plan
	metrics *metrics.Engine

	clientConfig ClientConfig

	users   map[int]*User
	usersMu sync.RWMutex

	nextUserID atomic.Int32

	sharedClient *http.Client

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// ClientConfig contains HTTP client settings for a pass.
type ClientConfig struct {
	// Timeout bounds each request end to end
	Timeout time.Duration

	// MaxIdleConns caps idle connections across all hosts
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections to the target; for a
	// benchmark pass this should be at least the user count
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits total connections to the target (0 = unlimited)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept alive
	IdleConnTimeout time.Duration

	// DisableKeepAlives forces a fresh connection per request
	DisableKeepAlives bool

	// DisableCompression disables automatic decompression
	DisableCompression bool

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// UseSharedClient makes all users share one client and transport
	UseSharedClient bool
}

// DefaultClientConfig returns defaults sized for local benchmark passes.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        2000,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     0,
		IdleConnTimeout:     90 * time.Second,
		UseSharedClient:     true,
	}
}

// NewScheduler creates a scheduler for one pass.
func NewScheduler(plan *Plan, engine *metrics.Engine, clientConfig ClientConfig) *Scheduler {
	s := &Scheduler{
		plan:         plan,
		metrics:      engine,
		clientConfig: clientConfig,
		users:        make(map[int]*User),
		shutdownCh:   make(chan struct{}),
	}
	if clientConfig.UseSharedClient {
		s.sharedClient = s.createHTTPClient()
	}
	return s
}

func (s *Scheduler) createHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        s.clientConfig.MaxIdleConns,
		MaxIdleConnsPerHost: s.clientConfig.MaxIdleConnsPerHost,
		MaxConnsPerHost:     s.clientConfig.MaxConnsPerHost,
		IdleConnTimeout:     s.clientConfig.IdleConnTimeout,
		DisableKeepAlives:   s.clientConfig.DisableKeepAlives,
		DisableCompression:  s.clientConfig.DisableCompression,
	}
	if s.clientConfig.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   s.clientConfig.Timeout,
	}
}

// SpawnUser creates and registers a new user. The caller runs it.
func (s *Scheduler) SpawnUser() *User {
	id := int(s.nextUserID.Add(1))

	client := s.sharedClient
	if client == nil {
		client = s.createHTTPClient()
	}

	user := NewUser(id, s.plan, client, s.metrics)

	s.usersMu.Lock()
	s.users[id] = user
	s.usersMu.Unlock()

	return user
}

// GetActiveUserCount returns the number of users not yet stopped.
func (s *Scheduler) GetActiveUserCount() int {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	count := 0
	for _, u := range s.users {
		if u.GetState() != UserStopped {
			count++
		}
	}
	return count
}

// StopAllUsers asks every user to stop after its current request.
func (s *Scheduler) StopAllUsers() {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	for _, u := range s.users {
		u.RequestStop()
	}
}

// WaitForAllUsers waits for every user to stop, returning how many were
// still running when the timeout expired.
func (s *Scheduler) WaitForAllUsers(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)

	s.usersMu.RLock()
	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.usersMu.RUnlock()

	notStopped := 0
	for _, u := range users {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			notStopped++
			continue
		}
		if !u.WaitForStop(remaining) {
			notStopped++
		}
	}
	return notStopped
}

// Shutdown stops all users and releases the shared client's connections.
// Safe to call more than once.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})

	s.StopAllUsers()
	s.WaitForAllUsers(timeout)

	if s.sharedClient != nil {
		s.sharedClient.CloseIdleConnections()
	}
}
