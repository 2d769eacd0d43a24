package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// linkStyle colors hyperlinks in terminal output
var linkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrightCyan)).Underline(true)

// FormatClickableURL renders displayText as an OSC 8 hyperlink to url.
// Terminals without OSC 8 support show the styled text only.
func FormatClickableURL(displayText, url string) string {
	if displayText == "" {
		displayText = url
	}
	return "\x1b]8;;" + url + "\x1b\\" + linkStyle.Render(displayText) + "\x1b]8;;\x1b\\"
}
