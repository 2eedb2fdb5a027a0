// Package setup infers per-project setup and archive commands from
// known configuration conventions, and runs them together with
// user-configured hooks.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Phase selects which command flavor a convention should yield.
type Phase string

const (
	// PhaseSetup runs after a worktree is created.
	PhaseSetup Phase = "setup"
	// PhaseArchive runs before a worktree is removed.
	PhaseArchive Phase = "archive"
)

// Action is a shell command inferred from a project convention.
type Action struct {
	Label   string
	Command string
	Source  string // the configuration file it came from
}

// A convention associates a configuration file with a way to extract a
// shell command for a phase. Conventions are evaluated in fixed
// priority order; an unreadable or unparseable file is silently
// treated as no match, never an error.
type convention struct {
	locate func(root string, phase Phase) (Action, bool)
}

var conventions = []convention{
	{locate: arborJSON},
	{locate: arborScript},
	{locate: packageJSON},
	{locate: makefile},
}

// Detect scans a worktree root and collects every convention match in
// priority order.
func Detect(root string, phase Phase) []Action {
	var actions []Action
	for _, c := range conventions {
		if action, ok := c.locate(root, phase); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

// arborJSON reads .arbor/setup.json or .arbor/archive.json:
// {"label": "...", "command": "..."} or {"commands": ["...", ...]}.
func arborJSON(root string, phase Phase) (Action, bool) {
	rel := filepath.Join(".arbor", string(phase)+".json")
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return Action{}, false
	}

	var decl struct {
		Label    string   `json:"label"`
		Command  string   `json:"command"`
		Commands []string `json:"commands"`
	}
	if err := json.Unmarshal(data, &decl); err != nil {
		return Action{}, false
	}

	command := decl.Command
	if command == "" && len(decl.Commands) > 0 {
		command = strings.Join(decl.Commands, " && ")
	}
	if command == "" {
		return Action{}, false
	}

	label := decl.Label
	if label == "" {
		label = command
	}
	return Action{Label: label, Command: command, Source: rel}, true
}

// arborScript looks for the fixed-name shell scripts .arbor/setup.sh
// and .arbor/archive.sh.
func arborScript(root string, phase Phase) (Action, bool) {
	rel := filepath.Join(".arbor", string(phase)+".sh")
	info, err := os.Stat(filepath.Join(root, rel))
	if err != nil || info.IsDir() {
		return Action{}, false
	}
	return Action{
		Label:   "sh " + rel,
		Command: "sh " + rel,
		Source:  rel,
	}, true
}

// packageJSON looks for a worktree:setup / worktree:archive script in
// package.json.
func packageJSON(root string, phase Phase) (Action, bool) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return Action{}, false
	}

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Action{}, false
	}

	name := "worktree:" + string(phase)
	if _, ok := pkg.Scripts[name]; !ok {
		return Action{}, false
	}
	return Action{
		Label:   "npm run " + name,
		Command: "npm run " + name,
		Source:  "package.json",
	}, true
}

var makeTargets = map[Phase]string{
	PhaseSetup:   "setup",
	PhaseArchive: "teardown",
}

// makefile looks for a setup: (or teardown:) target in the Makefile.
func makefile(root string, phase Phase) (Action, bool) {
	data, err := os.ReadFile(filepath.Join(root, "Makefile"))
	if err != nil {
		return Action{}, false
	}

	target := makeTargets[phase]
	re := regexp.MustCompile(fmt.Sprintf(`(?m)^%s\s*:`, regexp.QuoteMeta(target)))
	if !re.Match(data) {
		return Action{}, false
	}
	return Action{
		Label:   "make " + target,
		Command: "make " + target,
		Source:  "Makefile",
	}, true
}
