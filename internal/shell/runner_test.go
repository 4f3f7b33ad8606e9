package shell

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell test")
	}
	r := NewRunner(0, 0)

	res := r.RunLine(context.Background(), "echo hello", t.TempDir())
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("stdout = %q, want hello", res.Stdout)
	}

	res = r.RunLine(context.Background(), "exit 3", t.TempDir())
	if res.OK() {
		t.Error("exit 3 reported OK")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Err != "" {
		t.Errorf("non-zero exit must not be an infrastructure error, got %q", res.Err)
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell test")
	}
	r := NewRunner(0, 0)
	res := r.RunLine(context.Background(), "no_such_binary_anywhere_xyz", t.TempDir())
	// The shell itself starts fine and exits 127; either way the pipeline
	// only sees a degraded Result, never a panic or Go error.
	if res.OK() {
		t.Error("missing binary reported OK")
	}
}

func TestRunTimeoutKills(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell test")
	}
	r := NewRunner(0, 0)
	res := r.Run(context.Background(), Command{
		Line:    "sleep 5",
		Dir:     t.TempDir(),
		Timeout: 50 * time.Millisecond,
	})
	if !res.Killed {
		t.Errorf("expected Killed, got %+v", res)
	}
}

func TestRunOutputTruncation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell test")
	}
	r := NewRunner(0, 64)
	res := r.RunLine(context.Background(), "yes x | head -c 4096", t.TempDir())
	if !res.Truncated {
		t.Error("expected truncated output")
	}
	if len(res.Stdout) > 64 {
		t.Errorf("stdout length %d exceeds cap", len(res.Stdout))
	}
}

func TestRunExtraEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell test")
	}
	r := NewRunner(0, 0)
	res := r.Run(context.Background(), Command{
		Line: "echo $PLANFORGE_TEST_VAR",
		Dir:  t.TempDir(),
		Env:  []string{"PLANFORGE_TEST_VAR=wired"},
	})
	if strings.TrimSpace(res.Stdout) != "wired" {
		t.Errorf("stdout = %q, want wired", res.Stdout)
	}
}

func TestWhich(t *testing.T) {
	if !Which("sh") && runtime.GOOS != "windows" {
		t.Error("sh should resolve on POSIX hosts")
	}
	if Which("definitely-not-a-real-binary-xyz") {
		t.Error("nonsense binary resolved")
	}
}
