// Package tui renders the interactive terminal interface: the jobs table,
// the per-request diff viewer, the help overlay and notifications. It owns
// the AppState instance and feeds every bus action through the reducer.
package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Added   lipgloss.Color
	Removed lipgloss.Color

	IsDark bool
}

// DarkTheme returns the default scheme.
func DarkTheme() Theme {
	return Theme{
		Background: lipgloss.Color("#141d2b"),
		Foreground: lipgloss.Color("#f2f2f2"),
		Primary:    lipgloss.Color("#8BC34A"),
		Secondary:  lipgloss.Color("#1e2a3d"),
		Muted:      lipgloss.Color("#2a3850"),
		Border:     lipgloss.Color("#2a3850"),
		Success:    lipgloss.Color("#8BC34A"),
		Warning:    lipgloss.Color("#FFC107"),
		Error:      lipgloss.Color("#e53935"),
		Added:      lipgloss.Color("#4db6ac"),
		Removed:    lipgloss.Color("#e57373"),
		IsDark:     true,
	}
}

// LightTheme returns the alternate scheme toggled with 't'.
func LightTheme() Theme {
	return Theme{
		Background: lipgloss.Color("#f4f5f6"),
		Foreground: lipgloss.Color("#101F38"),
		Primary:    lipgloss.Color("#101F38"),
		Secondary:  lipgloss.Color("#e1e4e8"),
		Muted:      lipgloss.Color("#d6dae0"),
		Border:     lipgloss.Color("#dce0e5"),
		Success:    lipgloss.Color("#2e7d32"),
		Warning:    lipgloss.Color("#b28704"),
		Error:      lipgloss.Color("#c62828"),
		Added:      lipgloss.Color("#00695c"),
		Removed:    lipgloss.Color("#c62828"),
		IsDark:     false,
	}
}
