package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// State describes where a service process is in its lifecycle.
type State int

const (
	// StateRunning means the process has not reached a terminal state.
	StateRunning State = iota
	// StateExited means the process ended on its own.
	StateExited
	// StateAborted means the process ended because Abort stopped it.
	StateAborted
	// StateFailed means the exit could not be classified or the exit
	// status could not be read.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is the terminal state of a service process. ExitCode is -1
// when the process was ended by a signal.
type Status struct {
	State    State
	ExitCode int
	Err      error
}

func (s Status) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s (exit code %d): %v", s.State, s.ExitCode, s.Err)
	}
	return fmt.Sprintf("%s (exit code %d)", s.State, s.ExitCode)
}

// Process is the handle to one spawned service instance. All teardown
// signals are derived from this handle.
type Process struct {
	cmd             *exec.Cmd
	drained         *sync.WaitGroup
	closers         []io.Closer
	gracefulTimeout time.Duration

	mutex    sync.Mutex
	aborting bool
	result   *Status
	done     chan struct{}
}

// Pid returns the process id of the spawned service.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Running reports whether the process has reached a terminal state yet.
func (p *Process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the process exits and returns its terminal status.
func (p *Process) Wait() Status {
	<-p.done
	return *p.result
}

// Abort stops the process: SIGTERM first, then SIGKILL to the process
// group if it has not exited within the graceful timeout. The group is
// swept with SIGKILL on every path so helpers the service forked do
// not outlive it. Always returns a terminal status.
func (p *Process) Abort(ctx context.Context) Status {
	p.mutex.Lock()
	if p.result != nil {
		status := *p.result
		p.mutex.Unlock()
		p.killGroup()
		return status
	}
	p.aborting = true
	p.mutex.Unlock()

	pid := p.cmd.Process.Pid
	log.WithFields(log.Fields{"pid": pid}).Info("Stopping service via SIGTERM")

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			log.WithFields(log.Fields{"pid": pid, "error": err}).Error("Error delivering SIGTERM, killing process group")
			p.killGroup()
		}
	}

	select {
	case <-p.done:
	case <-time.After(p.gracefulTimeout):
		log.WithFields(log.Fields{"pid": pid, "timeout": p.gracefulTimeout}).Warn("Graceful stop timed out, killing process group")
		p.killGroup()
		<-p.done
	case <-ctx.Done():
		p.killGroup()
		<-p.done
	}

	p.killGroup()
	return *p.result
}

// reap waits for the output drains and the process itself, then
// publishes the terminal status. It is the only caller of cmd.Wait.
func (p *Process) reap() {
	p.drained.Wait()
	err := p.cmd.Wait()
	closeAll(p.closers)

	p.mutex.Lock()
	status := classifyExit(err, p.aborting)
	p.result = &status
	p.mutex.Unlock()

	log.WithFields(log.Fields{
		"pid":      p.cmd.Process.Pid,
		"state":    status.State,
		"exitCode": status.ExitCode,
	}).Debug("Service process reaped")

	close(p.done)
}

// killGroup delivers SIGKILL to the process group. Setpgid made the
// child the leader of its own group, so the group id is the spawn pid.
func (p *Process) killGroup() {
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		log.WithFields(log.Fields{"pgid": p.cmd.Process.Pid, "error": err}).Error("Error killing process group")
	}
}

// classifyExit turns cmd.Wait's result into a terminal Status.
func classifyExit(err error, aborted bool) Status {
	if err == nil {
		if aborted {
			return Status{State: StateAborted}
		}
		return Status{State: StateExited}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		waitStatus, ok := exitErr.Sys().(syscall.WaitStatus)
		if !ok {
			return Status{State: StateFailed, ExitCode: -1, Err: errors.New("no wait status in exit error")}
		}
		if waitStatus.Signaled() {
			if aborted {
				return Status{State: StateAborted, ExitCode: -1}
			}
			return Status{
				State:    StateFailed,
				ExitCode: -1,
				Err:      fmt.Errorf("terminated by signal %v", waitStatus.Signal()),
			}
		}
		if aborted {
			return Status{State: StateAborted, ExitCode: waitStatus.ExitStatus()}
		}
		return Status{State: StateExited, ExitCode: waitStatus.ExitStatus()}
	}

	return Status{State: StateFailed, ExitCode: -1, Err: err}
}
