// Package styles centralizes lipgloss colors and notification symbols
// shared by the prompt and picker components.
package styles

import (
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
)

// Palette colors.
var (
	// Primary is the main accent color (cyan/teal)
	Primary = lipgloss.Color("62")

	// Accent highlights selected/active items (pink)
	Accent = lipgloss.Color("212")

	// Success is used for positive outcomes (green)
	Success = lipgloss.Color("82")

	// Error is used for error messages (red)
	Error = lipgloss.Color("196")

	// Warning is used for degraded outcomes (orange)
	Warning = lipgloss.Color("214")

	// Muted is used for secondary text (gray)
	Muted = lipgloss.Color("240")
)

// Common styles.
var (
	TitleStyle   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	AccentStyle  = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error)
	WarnStyle    = lipgloss.NewStyle().Foreground(Warning)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

// Colored reports whether stderr supports color output.
// On dumb terminals notification symbols are rendered unstyled.
func Colored() bool {
	return colorprofile.Detect(os.Stderr, os.Environ()) != colorprofile.NoTTY &&
		colorprofile.Detect(os.Stderr, os.Environ()) != colorprofile.Ascii
}
