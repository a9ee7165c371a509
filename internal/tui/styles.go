// Package tui provides terminal user interface components for rustbisect.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultBoxWidth is the default width for TUI panels and menus.
const DefaultBoxWidth = 100

// Named palette shared by plain output and interactive menus.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}
) //nolint:gochecknoglobals // shared style palette, mirrors lipgloss.AdaptiveColor usage elsewhere in the package

// CheckNoColor forces the ASCII color profile when the terminal doesn't
// support color or NO_COLOR is set. Call it once at the start of a command
// that renders styled output.
func CheckNoColor() {
	if !HasColorSupport(os.Stdout.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Outcome mirrors the classifier's verdict for a probed build point, used to
// pick a color and icon for trace and summary output.
type Outcome string

// Outcome values a probe can resolve to.
const (
	OutcomeGood    Outcome = "good"
	OutcomeBad     Outcome = "bad"
	OutcomeSkipped Outcome = "skipped"
)

// OutputStyles holds lipgloss styles for plain message output.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewOutputStyles builds the default style set, adapting to terminal color support.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00875F", Dark: "#00FF87"}),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD700"}),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}),
	}
}

// OutcomeColors maps each outcome to its display color.
func OutcomeColors() map[Outcome]lipgloss.AdaptiveColor {
	return map[Outcome]lipgloss.AdaptiveColor{
		OutcomeGood:    {Light: "#00875F", Dark: "#00FF87"},
		OutcomeBad:     {Light: "#D70000", Dark: "#FF5F5F"},
		OutcomeSkipped: {Light: "#585858", Dark: "#6C6C6C"},
	}
}

// OutcomeIcon returns the glyph used to represent an outcome in trace and table output.
func OutcomeIcon(o Outcome) string {
	switch o {
	case OutcomeGood:
		return "✓"
	case OutcomeBad:
		return "✗"
	case OutcomeSkipped:
		return "○"
	default:
		return "?"
	}
}

// RenderOutcome renders the outcome's icon and label in its associated color.
func RenderOutcome(o Outcome) string {
	color, ok := OutcomeColors()[o]
	if !ok {
		return string(o)
	}
	style := lipgloss.NewStyle().Foreground(color)
	return style.Render(OutcomeIcon(o) + " " + string(o))
}

// HasColorSupport reports whether the given file descriptor supports ANSI
// color output: it must be a TTY and NO_COLOR must not be set.
func HasColorSupport(fd uintptr) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(fd)) //nolint:gosec // fd is a caller-supplied descriptor, not attacker-controlled width
}
