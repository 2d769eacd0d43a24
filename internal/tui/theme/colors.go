package theme

// Terminal-compatible color constants using ANSI standard colors
// These colors work consistently across different terminal themes
const (
	ColorWhite        = "#FFFFFF" // ANSI 15 - primary text
	ColorBlack        = "#000000"
	ColorBrightBlack  = "#808080" // ANSI 8 - secondary text
	ColorBrightBlue   = "#5C7CFA" // ANSI 12 - primary accent
	ColorBrightCyan   = "#66D9E8" // ANSI 14 - secondary accent
	ColorBrightGreen  = "#51CF66" // ANSI 10 - success/links
	ColorBrightYellow = "#FFD43B" // ANSI 11 - warning/selection
	ColorBrightRed    = "#FF6B6B" // ANSI 9 - error
	ColorPanel        = "#1A1A1A"
)

// Message kinds, in the same order as messaging.MessageType
const (
	messageInfo = iota
	messageSuccess
	messageWarning
	messageError
)

// GetMessageColor returns the color for a given message type
func GetMessageColor(messageType int) string {
	switch messageType {
	case messageError:
		return ColorBrightRed
	case messageSuccess:
		return ColorBrightGreen
	case messageWarning:
		return ColorBrightYellow
	default:
		return ColorBrightCyan
	}
}

// GetMessageIcon returns the icon for a given message type
func GetMessageIcon(messageType int) string {
	switch messageType {
	case messageError:
		return "❌"
	case messageSuccess:
		return "✅"
	case messageWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
