package cmd

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
}

func TestOutput(t *testing.T) {
	t.Parallel()
	requireSh(t)

	out, err := Output(context.Background(), "", "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != "hello" {
		t.Errorf("output = %q, want hello", got)
	}
}

func TestOutputErrorCarriesStderr(t *testing.T) {
	t.Parallel()
	requireSh(t)

	_, err := Output(context.Background(), "", "sh", "-c", "echo boom >&2; exit 1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %q, want it to carry stderr", err)
	}
}

func TestOutputErrorWithoutStderr(t *testing.T) {
	t.Parallel()
	requireSh(t)

	_, err := Output(context.Background(), "", "sh", "-c", "exit 7")
	if err == nil {
		t.Fatal("expected an error")
	}
	if ExitCode(err) != 7 {
		t.Errorf("ExitCode = %d, want 7", ExitCode(err))
	}
}

func TestOutputRespectsDir(t *testing.T) {
	t.Parallel()
	requireSh(t)

	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("failed to resolve dir: %v", err)
	}

	out, err := Output(context.Background(), dir, "pwd", "-P")
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != resolved {
		t.Errorf("pwd = %q, want %q", got, resolved)
	}
}

func TestOutputCancellation(t *testing.T) {
	t.Parallel()
	requireSh(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Output(ctx, "", "sh", "-c", "sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestExitCodeNonExecError(t *testing.T) {
	t.Parallel()

	if got := ExitCode(errors.New("plain")); got != -1 {
		t.Errorf("ExitCode = %d, want -1", got)
	}
}

func TestRunMissingBinary(t *testing.T) {
	t.Parallel()

	if err := Run(context.Background(), "", "definitely-not-a-real-binary-xyz"); err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}
