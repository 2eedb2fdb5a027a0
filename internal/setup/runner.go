package setup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/nlowe/arbor/internal/config"
	"github.com/nlowe/arbor/internal/log"
)

// Env holds the values substituted into hook and action commands.
type Env struct {
	Path    string // absolute worktree path
	Branch  string // branch name
	Main    string // main worktree path
	Project string // project name
	Trigger string // the command that caused the run
}

// shellQuote wraps a value in single quotes, escaping embedded single
// quotes so the result is safe to splice into a shell command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// Expand replaces {{placeholder}} tokens with shell-quoted values.
func Expand(command string, env Env) string {
	r := strings.NewReplacer(
		"{{path}}", shellQuote(env.Path),
		"{{branch}}", shellQuote(env.Branch),
		"{{main}}", shellQuote(env.Main),
		"{{project}}", shellQuote(env.Project),
		"{{trigger}}", shellQuote(env.Trigger),
	)
	return r.Replace(command)
}

// Hook pairs a configured hook with its name.
type Hook struct {
	Name string
	Hook config.Hook
}

// SelectHooks returns the configured hooks whose "on" list contains
// trigger (or "all"), sorted by name for deterministic ordering.
func SelectHooks(hooks map[string]config.Hook, trigger string) []Hook {
	var matches []Hook
	for name, hook := range hooks {
		for _, on := range hook.On {
			if on == "all" || on == trigger {
				matches = append(matches, Hook{Name: name, Hook: hook})
				break
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return matches
}

// Run executes a shell command in dir via `sh -c`, wiring stdout and
// stderr through so the user sees tool output directly.
func Run(ctx context.Context, dir, command string) error {
	log.FromContext(ctx).Command(dir, "sh", "-c", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// RunActions executes inferred actions in order, in the worktree
// directory. The first failure stops the sequence.
func RunActions(ctx context.Context, dir string, actions []Action) error {
	logger := log.FromContext(ctx)
	for _, action := range actions {
		logger.Printf("Running %s (%s)", action.Label, action.Source)
		if err := Run(ctx, dir, action.Command); err != nil {
			return fmt.Errorf("%s failed: %w", action.Label, err)
		}
	}
	return nil
}

// RunHooks executes the matched hooks with placeholders expanded,
// using dir as the working directory (archive hooks run from the main
// worktree because the archived path no longer exists). Hook failures
// are reported as warnings; a failing hook never aborts the command
// that triggered it.
func RunHooks(ctx context.Context, hooks []Hook, env Env, dir string) {
	logger := log.FromContext(ctx)
	for _, h := range hooks {
		logger.Printf("Running hook %q", h.Name)
		if err := Run(ctx, dir, Expand(h.Hook.Command, env)); err != nil {
			logger.Warnf("hook %q failed: %v", h.Name, err)
			continue
		}
		if h.Hook.Description != "" {
			logger.Printf("  %s", h.Hook.Description)
		}
	}
}
