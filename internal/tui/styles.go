package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/decomposer/internal/tree"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Status styles
var (
	StyleStatusRunning = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow")).
				Bold(true)

	StyleStatusWaiting = lipgloss.NewStyle().
				Foreground(lipgloss.Color("33"))

	StyleStatusComplete = lipgloss.NewStyle().
				Foreground(lipgloss.Color("green")).
				Bold(true)

	StyleStatusFailed = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleStatusPending = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	StyleSelected = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0"))

	StyleLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
)

// statusGlyph is the unstyled marker for a node, also used on the map grid.
func statusGlyph(status tree.Status, failed bool) string {
	switch {
	case failed:
		return "✗"
	case status == tree.StatusResolved:
		return "✓"
	case status == tree.StatusElaborating, status == tree.StatusDecomposing:
		return "●"
	case status == tree.StatusWaiting:
		return "◐"
	default:
		return "○"
	}
}

// StatusIcon returns a styled status indicator.
func StatusIcon(status tree.Status, failed bool) string {
	glyph := statusGlyph(status, failed)
	switch {
	case failed:
		return StyleStatusFailed.Render(glyph)
	case status == tree.StatusResolved:
		return StyleStatusComplete.Render(glyph)
	case status == tree.StatusElaborating, status == tree.StatusDecomposing:
		return StyleStatusRunning.Render(glyph)
	case status == tree.StatusWaiting:
		return StyleStatusWaiting.Render(glyph)
	default:
		return StyleStatusPending.Render(glyph)
	}
}
