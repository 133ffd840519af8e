// Package sandbox runs externally supplied source text in an isolated,
// time-bounded subprocess. Callers see only the structured Result, so a
// harder isolation backend (container, jail) can replace the subprocess
// without touching them.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Status classifies how an execution ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
	StatusFault     Status = "runtime_fault"
)

// DefaultTimeout bounds executions when the caller configures none.
// Unbounded execution is a defect, not a feature.
const DefaultTimeout = 30 * time.Second

// Result is the structured outcome of one execution. Stdout and Stderr are
// captured separately and always populated with whatever the process
// produced before it ended.
type Result struct {
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Message  string // fault or timeout explanation, empty on completion
}

// Executor runs source text and reports a structured result. Execute never
// returns an error for a failing program; only for a broken executor.
type Executor interface {
	Execute(ctx context.Context, code string) Result
}

// Subprocess executes code by piping it to an interpreter subprocess
// rooted in the session workspace. Side effects land in Dir only by
// convention of the working directory; stronger filesystem jailing is a
// substitute backend's job.
type Subprocess struct {
	// Command is the interpreter argv; the code is appended as the final
	// argument. Defaults to python3 -c.
	Command []string
	// Dir is the working directory for executed code, normally the
	// session workspace.
	Dir string
	// Timeout is the wall-clock bound per execution.
	Timeout time.Duration
}

// NewSubprocess creates an executor with the default interpreter and
// timeout, working inside dir.
func NewSubprocess(dir string) *Subprocess {
	return &Subprocess{
		Command: []string{"python3", "-c"},
		Dir:     dir,
		Timeout: DefaultTimeout,
	}
}

// Execute implements Executor.
func (s *Subprocess) Execute(ctx context.Context, code string) Result {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := s.Command
	if len(argv) == 0 {
		argv = []string{"python3", "-c"}
	}
	args := append(append([]string(nil), argv[1:]...), code)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, argv[0], args...)
	cmd.Dir = s.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A backgrounded grandchild inherits the stdio pipes and would keep
	// Run blocked past the deadline; abandon the pipes shortly after it.
	cmd.WaitDelay = timeout + time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		res.Status = StatusTimedOut
		res.ExitCode = -1
		res.Message = fmt.Sprintf("execution exceeded %s", timeout)
	case errors.Is(err, exec.ErrWaitDelay):
		// The process itself exited cleanly; only orphaned pipes were left.
		res.Status = StatusCompleted
		res.ExitCode = 0
	case err != nil:
		res.Status = StatusFault
		res.Message = err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	default:
		res.Status = StatusCompleted
		res.ExitCode = 0
	}
	return res
}

// interpreterAvailable reports whether the configured interpreter exists
// on PATH. Exposed for tests that must skip on minimal hosts.
func (s *Subprocess) interpreterAvailable() bool {
	argv := s.Command
	if len(argv) == 0 {
		return false
	}
	_, err := exec.LookPath(argv[0])
	return err == nil
}
