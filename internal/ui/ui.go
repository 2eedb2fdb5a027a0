// Package ui defines the interactive capability used by all operations.
//
// Operations never talk to the terminal directly; they receive a
// Prompter and suspend on it for every decision. A nil Prompter means
// no interactive capability is available: callers must then fall back
// to a safe default or fail, never act destructively on their own.
package ui

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
)

// ErrCancelled is returned when the user cancels a prompt.
// Cancellation at any prompt is non-destructive.
var ErrCancelled = errors.New("cancelled")

// Level classifies a notification.
type Level int

const (
	Info Level = iota
	Success
	Warn
	Error
)

// Prompter is the abstract interactive capability.
//
// Confirm and Select block until the user decides; both return
// ErrCancelled when the prompt is dismissed. Select returns the index
// of the chosen option. Input returns the entered text, or def when
// the user submits an empty line.
type Prompter interface {
	Notify(text string, level Level)
	Confirm(title, body string) (bool, error)
	Select(title string, options []string) (int, error)
	Input(prompt, def string) (string, error)
}

// Interactive reports whether both stdin and stderr are terminals,
// i.e. whether a terminal Prompter can be constructed.
func Interactive() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stderr.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
