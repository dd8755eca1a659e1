package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the styles the help printer uses.
type Theme struct {
	Bold lipgloss.Style
	Cyan lipgloss.Style
	Dim  lipgloss.Style

	Bullet string
}

func DefaultTheme() *Theme {
	return &Theme{
		Bold: lipgloss.NewStyle().Bold(true),
		Cyan: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Dim:  lipgloss.NewStyle().Faint(true),

		Bullet: "•",
	}
}
