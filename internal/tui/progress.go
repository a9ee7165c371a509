// Package tui provides terminal user interface components for rustbisect.
package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar wraps a bubbles progress model for rendering download and
// extraction progress to a terminal.
type ProgressBar struct {
	model progress.Model
	width int
}

// NewProgressBar creates a progress bar sized for the current terminal.
// Gradient fill is used when the terminal supports color; a solid fill
// otherwise.
func NewProgressBar(width int) *ProgressBar {
	var opts []progress.Option
	if HasColorSupport(os.Stdout.Fd()) {
		opts = append(opts, progress.WithDefaultGradient())
	} else {
		opts = append(opts, progress.WithSolidFill("7"))
	}
	opts = append(opts, progress.WithWidth(width))

	return &ProgressBar{
		model: progress.New(opts...),
		width: width,
	}
}

// ViewAt renders the bar at the given completion ratio (0.0 to 1.0).
func (p *ProgressBar) ViewAt(ratio float64) string {
	return p.model.ViewAs(ratio)
}

// FormatByteProgress formats a byte-count progress line, e.g. "12.3 MiB / 48.0 MiB".
func FormatByteProgress(downloaded, total int64) string {
	if total <= 0 {
		return formatBytes(downloaded)
	}
	return fmt.Sprintf("%s / %s", formatBytes(downloaded), formatBytes(total))
}

// formatBytes renders a byte count using binary (MiB/GiB) units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for got := n / unit; got >= unit; got /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// StepCounter formats a "[n/total]" progress prefix for multi-candidate runs,
// e.g. bisecting through a range of nightlies.
func StepCounter(current, total int) string {
	style := lipgloss.NewStyle().Faint(true)
	return style.Render(fmt.Sprintf("[%d/%d]", current, total))
}
