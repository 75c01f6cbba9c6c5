package service

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sevengram/drover/internal/config"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.ErrorLevel)
	os.Exit(m.Run())
}

// startService spawns /bin/sh -c script with test defaults.
func startService(t *testing.T, script string, mutate ...func(*config.ServiceConfig)) *Process {
	t.Helper()

	cfg := config.ServiceConfig{
		Command:         []string{"/bin/sh", "-c", script},
		Workers:         4,
		GracefulTimeout: config.Duration(2 * time.Second),
	}
	for _, m := range mutate {
		m(&cfg)
	}

	proc, err := NewRunner(cfg).Start(context.Background())
	if err != nil {
		t.Fatalf("Error starting service: %v", err)
	}
	return proc
}

func TestStart_NoCommand(t *testing.T) {
	_, err := NewRunner(config.ServiceConfig{}).Start(context.Background())
	if err == nil {
		t.Fatal("Expected error for empty command, got nil")
	}
}

func TestStart_MissingBinary(t *testing.T) {
	cfg := config.ServiceConfig{Command: []string{"/nonexistent/drover-test-binary"}}
	_, err := NewRunner(cfg).Start(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing binary, got nil")
	}
}

func TestStart_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.ServiceConfig{Command: []string{"/bin/sh", "-c", "exit 0"}}
	_, err := NewRunner(cfg).Start(ctx)
	if err == nil {
		t.Fatal("Expected error for cancelled context, got nil")
	}
}

func TestProcess_CleanExit(t *testing.T) {
	proc := startService(t, "exit 0")

	if proc.Pid() <= 0 {
		t.Errorf("Expected positive pid, got %d", proc.Pid())
	}

	status := proc.Wait()
	if status.State != StateExited {
		t.Errorf("Expected state %v, got %v", StateExited, status.State)
	}
	if status.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", status.ExitCode)
	}
	if proc.Running() {
		t.Error("Expected Running to be false after exit")
	}
}

func TestProcess_ExitCode(t *testing.T) {
	proc := startService(t, "exit 3")

	status := proc.Wait()
	if status.State != StateExited {
		t.Errorf("Expected state %v, got %v", StateExited, status.State)
	}
	if status.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", status.ExitCode)
	}
}

func TestProcess_WorkersEnv(t *testing.T) {
	proc := startService(t, `exit "$DROVER_WORKERS"`, func(cfg *config.ServiceConfig) {
		cfg.Workers = 7
	})

	status := proc.Wait()
	if status.ExitCode != 7 {
		t.Errorf("Expected exit code 7 from DROVER_WORKERS, got %d", status.ExitCode)
	}
}

func TestProcess_ExtraEnv(t *testing.T) {
	proc := startService(t, `exit "$DROVER_TEST_CODE"`, func(cfg *config.ServiceConfig) {
		cfg.Env = []string{"DROVER_TEST_CODE=5"}
	})

	status := proc.Wait()
	if status.ExitCode != 5 {
		t.Errorf("Expected exit code 5 from extra env, got %d", status.ExitCode)
	}
}

func TestProcess_OutputDrained(t *testing.T) {
	proc := startService(t, "echo out; echo err 1>&2; exit 0")

	status := proc.Wait()
	if status.State != StateExited || status.ExitCode != 0 {
		t.Errorf("Expected clean exit, got %v", status)
	}
}

func TestProcess_CaptureMode(t *testing.T) {
	proc := startService(t, "echo captured; exit 0", func(cfg *config.ServiceConfig) {
		cfg.LogOutput = config.LogOutputCapture
	})

	status := proc.Wait()
	if status.State != StateExited || status.ExitCode != 0 {
		t.Errorf("Expected clean exit in capture mode, got %v", status)
	}
}

func TestProcess_Abort_Graceful(t *testing.T) {
	proc := startService(t, `trap 'exit 0' TERM; while true; do sleep 0.05; done`)

	if !proc.Running() {
		t.Fatal("Expected process to be running before abort")
	}

	status := proc.Abort(context.Background())
	if status.State != StateAborted {
		t.Errorf("Expected state %v, got %v", StateAborted, status.State)
	}
	if proc.Running() {
		t.Error("Expected Running to be false after abort")
	}
}

func TestProcess_Abort_KillsStubbornProcess(t *testing.T) {
	proc := startService(t, `trap '' TERM; while true; do sleep 0.05; done`, func(cfg *config.ServiceConfig) {
		cfg.GracefulTimeout = config.Duration(200 * time.Millisecond)
	})

	start := time.Now()
	status := proc.Abort(context.Background())
	elapsed := time.Since(start)

	if status.State != StateAborted {
		t.Errorf("Expected state %v, got %v", StateAborted, status.State)
	}
	if status.ExitCode != -1 {
		t.Errorf("Expected exit code -1 for killed process, got %d", status.ExitCode)
	}
	if elapsed < 200*time.Millisecond {
		t.Errorf("Expected abort to honor the graceful timeout, returned after %v", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Expected abort to return promptly after SIGKILL, took %v", elapsed)
	}
}

func TestProcess_AbortAfterExit(t *testing.T) {
	proc := startService(t, "exit 0")
	proc.Wait()

	status := proc.Abort(context.Background())
	if status.State != StateExited {
		t.Errorf("Expected abort after exit to keep state %v, got %v", StateExited, status.State)
	}
}

func TestProcess_AbortIdempotent(t *testing.T) {
	proc := startService(t, `trap 'exit 0' TERM; while true; do sleep 0.05; done`)

	first := proc.Abort(context.Background())
	second := proc.Abort(context.Background())
	if first.State != second.State || first.ExitCode != second.ExitCode {
		t.Errorf("Expected repeated aborts to agree, got %v then %v", first, second)
	}
}

func TestProcess_ExternallyKilled(t *testing.T) {
	proc := startService(t, `while true; do sleep 0.05; done`)

	if err := syscall.Kill(proc.Pid(), syscall.SIGKILL); err != nil {
		t.Fatalf("Error killing process: %v", err)
	}

	status := proc.Wait()
	if status.State != StateFailed {
		t.Errorf("Expected state %v for externally killed process, got %v", StateFailed, status.State)
	}
	if status.ExitCode != -1 {
		t.Errorf("Expected exit code -1, got %d", status.ExitCode)
	}
	if status.Err == nil {
		t.Error("Expected an error describing the signal")
	}
}

func TestClassifyExit(t *testing.T) {
	if got := classifyExit(nil, false); got.State != StateExited || got.ExitCode != 0 {
		t.Errorf("classifyExit(nil, false) = %v, want exited 0", got)
	}
	if got := classifyExit(nil, true); got.State != StateAborted {
		t.Errorf("classifyExit(nil, true) = %v, want aborted", got)
	}

	plain := errors.New("pipe broke")
	got := classifyExit(plain, false)
	if got.State != StateFailed || got.Err == nil {
		t.Errorf("classifyExit(plain error) = %v, want failed with error", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateRunning, "running"},
		{StateExited, "exited"},
		{StateAborted, "aborted"},
		{StateFailed, "failed"},
	}

	for _, tt := range tests {
		if tt.state.String() != tt.expected {
			t.Errorf("State(%d).String() = %s, want %s", int(tt.state), tt.state.String(), tt.expected)
		}
	}
}

func TestStatus_String(t *testing.T) {
	status := Status{State: StateExited, ExitCode: 2}
	if status.String() != "exited (exit code 2)" {
		t.Errorf("Status.String() = %s", status.String())
	}

	status = Status{State: StateFailed, ExitCode: -1, Err: errors.New("boom")}
	if status.String() != "failed (exit code -1): boom" {
		t.Errorf("Status.String() = %s", status.String())
	}
}
