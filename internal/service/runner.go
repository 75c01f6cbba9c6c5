// Package service manages the lifecycle of the service under test:
// spawning, readiness probing, cache warm-up, and teardown.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sevengram/drover/internal/config"
)

// WorkersEnv is the environment variable carrying the configured worker
// count to the spawned service.
const WorkersEnv = "DROVER_WORKERS"

// Runner spawns service processes from a ServiceConfig.
type Runner struct {
	cfg config.ServiceConfig
}

// NewRunner creates a Runner for the given service configuration.
func NewRunner(cfg config.ServiceConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Start launches the configured command in its own process group and
// begins draining its output. The child environment is the parent
// environment plus the configured extras plus DROVER_WORKERS.
func (r *Runner) Start(ctx context.Context) (*Process, error) {
	if len(r.cfg.Command) == 0 {
		return nil, fmt.Errorf("no service command configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(r.cfg.Command[0], r.cfg.Command[1:]...)
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	cmd.Env = append(cmd.Env, WorkersEnv+"="+strconv.Itoa(r.cfg.Workers))

	// The child leads its own process group so teardown can signal the
	// whole tree through this handle, never by name.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, stderr, closers := r.drains()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		closeAll(closers)
		return nil, err
	}

	var drained sync.WaitGroup
	drained.Add(2)
	go func() {
		defer drained.Done()
		io.Copy(stdout, stdoutPipe)
	}()
	go func() {
		defer drained.Done()
		io.Copy(stderr, stderrPipe)
	}()

	if err := cmd.Start(); err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("failed to start %s: %w", r.cfg.Command[0], err)
	}

	log.WithFields(log.Fields{
		"pid":     cmd.Process.Pid,
		"command": r.cfg.Command,
		"workers": r.cfg.Workers,
	}).Info("Started service process")

	proc := &Process{
		cmd:             cmd,
		drained:         &drained,
		closers:         closers,
		gracefulTimeout: r.cfg.GracefulTimeout.GetDuration(5 * time.Second),
		done:            make(chan struct{}),
	}
	go proc.reap()

	return proc, nil
}

// drains returns the writers the child's output is copied into. In
// capture mode each line becomes a structured log entry; otherwise the
// output is discarded.
func (r *Runner) drains() (io.Writer, io.Writer, []io.Closer) {
	if r.cfg.LogOutput == config.LogOutputCapture {
		stdout := log.WithFields(log.Fields{"component": "service", "stream": "stdout"}).WriterLevel(log.InfoLevel)
		stderr := log.WithFields(log.Fields{"component": "service", "stream": "stderr"}).WriterLevel(log.WarnLevel)
		return stdout, stderr, []io.Closer{stdout, stderr}
	}
	return io.Discard, io.Discard, nil
}

func closeAll(closers []io.Closer) {
	for _, closer := range closers {
		closer.Close()
	}
}
