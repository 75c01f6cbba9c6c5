// Stand-in for the service under test: four store-backed endpoints on
// the sweep driver's default port, with the type selector semantics the
// driver expects. Useful for exercising a full sweep locally:
//
//	drover sweep motor 2 --service-cmd "./test-server" --profile smoke
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Simulated per-request work. The cold cached read pays the rebuild
// cost once, which is what the warm-up call exists to absorb.
const (
	readDelay     = 2 * time.Millisecond
	insertDelay   = 4 * time.Millisecond
	coldReadDelay = 40 * time.Millisecond
	warmReadDelay = time.Millisecond
)

// store is one endpoint's backing state.
type store struct {
	mu     sync.Mutex
	rows   int
	cached bool
}

// handle serves one endpoint. Type "0" reads (and leaves the cache
// warm), type "1" inserts, type "2" reads through the cache.
func (s *store) handle(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.mu.Lock()
		var op string
		var delay time.Duration
		switch r.URL.Query().Get("type") {
		case "1":
			op = "insert"
			s.rows++
			delay = insertDelay
		case "2":
			op = "cached read"
			delay = warmReadDelay
			if !s.cached {
				delay = coldReadDelay
				s.cached = true
			}
		default:
			op = "read"
			delay = readDelay
			s.cached = true
		}
		rows := s.rows
		s.mu.Unlock()

		time.Sleep(delay)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"endpoint":  endpoint,
			"operation": op,
			"rows":      rows,
			"elapsedMs": time.Since(start).Milliseconds(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func defaultWorkers() int {
	if v := os.Getenv("DROVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 4
}

func main() {
	port := flag.Int("port", 33600, "listen port")
	workers := flag.Int("workers", defaultWorkers(), "worker count reported by the health endpoint")
	startup := flag.Duration("startup", 300*time.Millisecond, "delay before the health endpoint reports ready")
	flag.Parse()

	boot := time.Now()
	mux := http.NewServeMux()

	for _, endpoint := range []string{"motor", "mongo", "amysql", "mysql"} {
		s := &store{rows: 1000}
		mux.HandleFunc("/"+endpoint, s.handle(endpoint))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if time.Since(boot) < *startup {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "starting",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"workers": *workers,
		})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Test server listening on :%d (%d workers)", *port, *workers)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
