package ui

import (
	"fmt"
	"os"

	"github.com/nlowe/arbor/internal/ui/prompt"
	"github.com/nlowe/arbor/internal/ui/styles"
)

// Terminal is the Prompter implementation backed by interactive
// terminal prompts on stderr.
type Terminal struct{}

// NewTerminal returns a terminal-backed Prompter, or nil when stdin or
// stderr is not a terminal.
func NewTerminal() Prompter {
	if !Interactive() {
		return nil
	}
	return &Terminal{}
}

func (t *Terminal) Notify(text string, level Level) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styles.Symbol(levelKeyword(level)), text)
}

func (t *Terminal) Confirm(title, body string) (bool, error) {
	res, err := prompt.Confirm(title, body)
	if err != nil {
		return false, err
	}
	if res.Cancelled {
		return false, ErrCancelled
	}
	return res.Confirmed, nil
}

func (t *Terminal) Select(title string, options []string) (int, error) {
	res, err := prompt.Select(title, options)
	if err != nil {
		return -1, err
	}
	if res.Cancelled {
		return -1, ErrCancelled
	}
	return res.Index, nil
}

func (t *Terminal) Input(promptText, def string) (string, error) {
	res, err := prompt.TextInput(promptText, def)
	if err != nil {
		return "", err
	}
	if res.Cancelled {
		return "", ErrCancelled
	}
	if res.Value == "" {
		return def, nil
	}
	return res.Value, nil
}

func levelKeyword(level Level) string {
	switch level {
	case Success:
		return "success"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}
