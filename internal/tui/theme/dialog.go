package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// CreateDialogStyle creates the floating dialog used by the help overlay
func CreateDialogStyle(width int, borderColor string) lipgloss.Style {
	if borderColor == "" {
		borderColor = ColorBrightBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(1, 2).
		Width(width).
		Background(lipgloss.Color(ColorPanel)).
		Foreground(lipgloss.Color(ColorWhite))
}

// CreateButtonStyle styles one inline button. Link buttons are drawn in the
// link color so they stand apart from buttons that talk to the bot.
func CreateButtonStyle(selected, link bool) lipgloss.Style {
	style := lipgloss.NewStyle().Padding(0, 1).MarginRight(1)

	if selected {
		return style.
			Foreground(lipgloss.Color(ColorBlack)).
			Background(lipgloss.Color(ColorBrightYellow)).
			Bold(true)
	}

	if link {
		return style.
			Foreground(lipgloss.Color(ColorBrightGreen)).
			Underline(true)
	}

	return style.
		Foreground(lipgloss.Color(ColorBrightCyan)).
		Background(lipgloss.Color(ColorPanel))
}
