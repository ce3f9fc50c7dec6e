// Package tui holds the terminal styles shared by uectl's reports.
// Styles degrade to plain text when stdout is not a terminal.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorIce   = lipgloss.Color("#A8D8EA") // accents
	ColorDeep  = lipgloss.Color("#596E79") // secondary text
	ColorAlert = lipgloss.Color("#FF6B6B") // failures
	ColorGood  = lipgloss.Color("#4ECDC4") // success
	ColorWarn  = lipgloss.Color("#FFE66D") // partial / residue
	ColorMuted = lipgloss.Color("#6c757d")
)

// Styles
var (
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorIce).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Italic(true)

	StyleTableHeader = lipgloss.NewStyle().
				Foreground(ColorDeep).
				Bold(true)

	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood).Bold(true)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
)

// Good renders s in the success style.
func Good(s string) string { return StyleStatusGood.Render(s) }

// Bad renders s in the failure style.
func Bad(s string) string { return StyleStatusBad.Render(s) }

// Warn renders s in the warning style.
func Warn(s string) string { return StyleStatusWarn.Render(s) }

// Header renders a section title.
func Header(s string) string { return StyleHeader.Render(s) }

// Rule returns ch repeated width times.
func Rule(ch string, width int) string {
	return strings.Repeat(ch, width)
}
