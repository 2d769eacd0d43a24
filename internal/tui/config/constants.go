package config

// Layout constants
const (
	// Transcript
	MaxTranscriptEntries = 200
	TranscriptChromeRows = 2 // top and bottom border

	// Header, status line, input and footer
	FixedChromeRows = 5

	// Keyboard panel
	MaxKeyboardRows = 12

	// Help overlay
	HelpDialogWidth = 64

	// Welcome banner size in terminal cells
	BannerCols = 48
	BannerRows = 12

	DefaultWindowWidth  = 80
	DefaultWindowHeight = 24
)
