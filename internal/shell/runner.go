// Package shell runs external build tools as blocking subprocesses.
// Every invocation is best-effort: a non-zero exit or missing binary is
// reported in the Result, never as a Go error, so the build pipeline can
// degrade instead of aborting.
package shell

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"planforge/internal/logging"
)

// Command describes one tool invocation. Line is a full shell command line
// and is passed to the platform shell, matching how plan post_install
// entries and run hints are expressed.
type Command struct {
	Line string
	Dir  string

	// Env entries are appended to the inherited environment.
	Env []string

	// Timeout overrides the runner default when positive.
	Timeout time.Duration
}

// Result captures the outcome of a single invocation.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Truncated bool
	Duration  time.Duration
	Killed    bool

	// Err is set only for infrastructure failures (binary missing, shell
	// could not start). A command that ran and exited non-zero has Err=="".
	Err string
}

// OK reports whether the command ran and exited zero.
func (r Result) OK() bool {
	return r.Err == "" && !r.Killed && r.ExitCode == 0
}

// Runner executes commands with shared defaults.
type Runner struct {
	defaultTimeout time.Duration
	maxOutputBytes int64
}

// NewRunner creates a runner. Zero values select a 10 minute timeout and a
// 1 MiB output cap.
func NewRunner(defaultTimeout time.Duration, maxOutputBytes int64) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Minute
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = 1 << 20
	}
	return &Runner{defaultTimeout: defaultTimeout, maxOutputBytes: maxOutputBytes}
}

// Run executes the command line through the platform shell and waits.
func (r *Runner) Run(ctx context.Context, cmd Command) Result {
	timer := logging.StartTimer(logging.CategoryBuild, "tool invocation")
	defer timer.Stop()

	logging.BuildDebug("Executing: %s (dir=%s)", cmd.Line, cmd.Dir)

	timeout := r.defaultTimeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var execCmd *exec.Cmd
	if runtime.GOOS == "windows" {
		execCmd = exec.CommandContext(execCtx, "cmd", "/c", cmd.Line)
	} else {
		execCmd = exec.CommandContext(execCtx, "sh", "-c", cmd.Line)
	}
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: r.maxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: r.maxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	start := time.Now()
	err := execCmd.Run()

	result := Result{
		ExitCode:  0,
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Truncated: stdoutLimited.truncated || stderrLimited.truncated,
		Duration:  time.Since(start),
	}

	if err != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			result.Killed = true
			result.ExitCode = -1
			result.Err = ""
			logging.BuildWarn("Command killed (timeout %s): %s", timeout, cmd.Line)
		case execCtx.Err() == context.Canceled:
			result.Killed = true
			result.ExitCode = -1
			logging.BuildDebug("Command canceled: %s", cmd.Line)
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				result.ExitCode = exitErr.ExitCode()
				logging.BuildDebug("Command exited non-zero: %s -> %d", cmd.Line, result.ExitCode)
			} else {
				result.ExitCode = -1
				result.Err = err.Error()
				logging.BuildWarn("Command failed to start: %s - %v", cmd.Line, err)
			}
		}
	}

	logging.Build("Command completed: %q -> exit=%d, duration=%s",
		cmd.Line, result.ExitCode, result.Duration)
	return result
}

// RunLine is shorthand for running a command line in a directory.
func (r *Runner) RunLine(ctx context.Context, line, dir string) Result {
	return r.Run(ctx, Command{Line: line, Dir: dir})
}

// Which reports whether a binary is resolvable on PATH.
func Which(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// limitedWriter caps total bytes written, discarding the excess.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil // pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // original length avoids short-write errors upstream
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
