// Package format renders attributions for a terminal.
package format

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Styles used across the output. Colors are disabled automatically when
// stdout is not a terminal or NO_COLOR is set.
var (
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
	Yellow = color.New(color.FgYellow)
	Cyan   = color.New(color.FgCyan)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
)

// SetColor forces colored output on or off.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// ColorEnabled reports whether styles emit escape sequences.
func ColorEnabled() bool {
	return !color.NoColor
}

// TermWidth returns the terminal width, defaulting to 80.
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
