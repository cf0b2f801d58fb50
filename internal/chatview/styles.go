package chatview

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#25D366")
	accentColor  = lipgloss.Color("#128C7E")
	mutedColor   = lipgloss.Color("#9CA3AF")
	activeBorder = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true).
				PaddingLeft(1).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(primaryColor)

	unselectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	threadStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	ownMessageStyle   = lipgloss.NewStyle().Foreground(primaryColor)
	otherMessageStyle = lipgloss.NewStyle().Foreground(accentColor)
)
