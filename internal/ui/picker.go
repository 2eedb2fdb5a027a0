package ui

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	tea "charm.land/bubbletea/v2"
	"github.com/sahilm/fuzzy"

	"github.com/nlowe/arbor/internal/ui/styles"
)

// PickOption is one selectable entry in a fuzzy picker.
type PickOption struct {
	Label  string // matched against the filter
	Detail string // shown dimmed next to the label
}

type pickSource []PickOption

func (s pickSource) String(i int) string { return s[i].Label }
func (s pickSource) Len() int            { return len(s) }

// rankOptions returns the options matching filter, best match first.
// An empty filter keeps the original order.
func rankOptions(options []PickOption, filter string) []fuzzy.Match {
	if filter == "" {
		matches := make([]fuzzy.Match, len(options))
		for i := range options {
			matches[i] = fuzzy.Match{Str: options[i].Label, Index: i}
		}
		return matches
	}
	return fuzzy.FindFrom(filter, pickSource(options))
}

type pickerModel struct {
	title    string
	options  []PickOption
	filtered []fuzzy.Match
	filter   string
	cursor   int
	selected int
	done     bool
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= 0 && m.cursor < len(m.filtered) {
			m.selected = m.filtered[m.cursor].Index
			m.done = true
			return m, tea.Quit
		}
	case "ctrl+c", "esc":
		m.selected = -1
		m.done = true
		return m, tea.Quit
	case "backspace":
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
			m.refilter()
		}
	default:
		if t := keyMsg.Text; t != "" && unicode.IsPrint([]rune(t)[0]) {
			m.filter += t
			m.refilter()
		}
	}
	return m, nil
}

func (m *pickerModel) refilter() {
	m.filtered = rankOptions(m.options, m.filter)
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m pickerModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "> %s\n", m.filter)

	for i, match := range m.filtered {
		opt := m.options[match.Index]
		line := opt.Label
		if opt.Detail != "" {
			line += "  " + styles.MutedStyle.Render(opt.Detail)
		}
		if i == m.cursor {
			b.WriteString(styles.AccentStyle.Render("› " + opt.Label))
			if opt.Detail != "" {
				b.WriteString("  " + styles.MutedStyle.Render(opt.Detail))
			}
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if len(m.filtered) == 0 {
		b.WriteString(styles.MutedStyle.Render("  no matches"))
		b.WriteString("\n")
	}

	b.WriteString(styles.MutedStyle.Render("↑/↓ move · enter select · esc cancel"))
	return tea.NewView(b.String())
}

// Pick shows a fuzzy-filterable picker and returns the index of the
// chosen option. Returns ErrCancelled if the picker is dismissed.
func Pick(title string, options []PickOption) (int, error) {
	if len(options) == 0 {
		return -1, ErrCancelled
	}

	model := pickerModel{
		title:    title,
		options:  options,
		filtered: rankOptions(options, ""),
		selected: -1,
	}
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return -1, err
	}
	m := finalModel.(pickerModel)
	if m.selected < 0 {
		return -1, ErrCancelled
	}
	return m.selected, nil
}
