package output

import (
	"github.com/fatih/color"
)

// ColorScheme holds the colors used for console output
type ColorScheme struct {
	Success   *color.Color
	Error     *color.Color
	Warning   *color.Color
	Info      *color.Color
	Highlight *color.Color
	Faint     *color.Color
}

// DefaultColorScheme returns the standard color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Success:   color.New(color.FgGreen),
		Error:     color.New(color.FgRed),
		Warning:   color.New(color.FgYellow),
		Info:      color.New(color.FgCyan),
		Highlight: color.New(color.Bold),
		Faint:     color.New(color.Faint),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Success.DisableColor()
	scheme.Error.DisableColor()
	scheme.Warning.DisableColor()
	scheme.Info.DisableColor()
	scheme.Highlight.DisableColor()
	scheme.Faint.DisableColor()
	return scheme
}

// ForcedColorScheme returns the standard scheme with colors forced on,
// independent of the terminal detection done by the color package. The
// console writes to an arbitrary writer, so auto-detection against
// os.Stdout would be wrong.
func ForcedColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Success.EnableColor()
	scheme.Error.EnableColor()
	scheme.Warning.EnableColor()
	scheme.Info.EnableColor()
	scheme.Highlight.EnableColor()
	scheme.Faint.EnableColor()
	return scheme
}

// StatusColor returns the color for an HTTP status code
func (s *ColorScheme) StatusColor(statusCode int) *color.Color {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return s.Success
	case statusCode >= 300 && statusCode < 400:
		return s.Warning
	default:
		return s.Error
	}
}

// OutcomeIcon returns the icon for an iteration outcome
func (s *ColorScheme) OutcomeIcon(outcome string) string {
	switch outcome {
	case "passed":
		return s.Success.Sprint("✓")
	case "skipped":
		return s.Warning.Sprint("~")
	default:
		return s.Error.Sprint("✗")
	}
}
