package utils

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressLine redraws a single status line in place on a terminal
type ProgressLine struct {
	out         io.Writer
	description string
	startTime   time.Time
	lastLine    string
	lastLineLen int
	finished    bool
}

// NewProgressLine creates a progress line that writes to out
func NewProgressLine(out io.Writer, description string) *ProgressLine {
	return &ProgressLine{
		out:         out,
		description: description,
		startTime:   time.Now(),
	}
}

// Update redraws the line with text. Multi-line text is flattened so the
// carriage return trick keeps working. Identical text is not redrawn.
func (pl *ProgressLine) Update(text string) {
	if pl.finished {
		return
	}

	line := strings.Join(strings.Fields(strings.ReplaceAll(text, "\n", " ")), " ")
	if pl.description != "" {
		line = pl.description + " " + line
	}
	if elapsed := time.Since(pl.startTime); elapsed >= time.Second {
		line = fmt.Sprintf("%s (%s)", line, elapsed.Truncate(time.Second))
	}

	if line == pl.lastLine {
		return
	}

	// Clear previous line if it was longer
	if pl.lastLineLen > len(line) {
		fmt.Fprintf(pl.out, "\r%s\r", strings.Repeat(" ", pl.lastLineLen))
	}

	fmt.Fprintf(pl.out, "\r%s", line)
	pl.lastLine = line
	pl.lastLineLen = len(line)
}

// Close finishes the progress display
func (pl *ProgressLine) Close() error {
	if !pl.finished {
		pl.finished = true
		if pl.lastLineLen > 0 {
			fmt.Fprintln(pl.out)
		}
	}
	return nil
}
