// Package cmd executes external commands with combined-output error
// reporting, context cancellation and verbose tracing.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nlowe/arbor/internal/log"
)

// Run executes a command in dir and returns an error carrying the
// command's stderr if it fails. An empty dir runs in the process's
// working directory.
func Run(ctx context.Context, dir, name string, args ...string) error {
	_, err := Output(ctx, dir, name, args...)
	return err
}

// Output executes a command in dir and returns its stdout. On failure
// the error contains the trimmed stderr, or the exit error if the
// command produced none. A cancelled or expired context is reported as
// such rather than as a generic exit failure.
func Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	log.FromContext(ctx).Command(dir, name, args...)

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir

	var stderr bytes.Buffer
	c.Stderr = &stderr

	out, err := c.Output()
	if err == nil {
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return nil, fmt.Errorf("%s", msg)
	}
	return nil, err
}

// ExitCode returns the exit code of err if it wraps an exec.ExitError,
// or -1 otherwise.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
