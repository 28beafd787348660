package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	redCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	blackCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	seatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4"))

	turnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
)

// styleCard colours one card token: hearts and diamonds (and the big joker)
// red, everything else plain.
func styleCard(name string) string {
	for _, r := range name {
		if r == '♥' || r == '◆' {
			return redCardStyle.Render(name)
		}
		break
	}
	if name == "大王" {
		return redCardStyle.Render(name)
	}
	return blackCardStyle.Render(name)
}
