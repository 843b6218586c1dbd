package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styles struct {
	title     lipgloss.Style
	statusBar lipgloss.Style
	errText   lipgloss.Style
	header    lipgloss.Style
	selected  lipgloss.Style
	dim       lipgloss.Style
}

// newStyles picks a palette for the detected background.
func newStyles() styles {
	accent := lipgloss.Color("63")
	dim := lipgloss.Color("240")
	if !termenv.HasDarkBackground() {
		accent = lipgloss.Color("27")
		dim = lipgloss.Color("245")
	}
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		statusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(accent).Padding(0, 1),
		errText:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		header:    lipgloss.NewStyle().Bold(true).Underline(true),
		selected:  lipgloss.NewStyle().Reverse(true),
		dim:       lipgloss.NewStyle().Foreground(dim),
	}
}
