// Package tui provides terminal user interface components for rustbisect.
//
// This file provides the interactive prompt used by `rustbisect --prompt`
// to ask the operator to classify each completed probe, and the
// confirmation prompt shown before installing a toolchain without
// --force-install.
package tui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// Terminal layout constants.
const (
	// TerminalEdgeMargin is the number of characters to leave between
	// menu content and the terminal edge for visual padding.
	TerminalEdgeMargin = 4

	// MinMenuWidth is the minimum usable width for menu content.
	MinMenuWidth = 40
)

// KeyHints is a key hint string for interactive menus. The prompts in this
// file do not print it; with ShowKeyHints set they show huh's own help line.
const KeyHints = "[↑↓] Navigate  [enter] Select  [q] Cancel"

// MenuConfig holds configuration for menu components.
type MenuConfig struct {
	// Width is the maximum width for the menu. If 0, adapts to terminal width.
	Width int
	// ShowKeyHints controls whether key hints are displayed.
	ShowKeyHints bool
}

// NewMenuConfig creates a MenuConfig with sensible defaults.
func NewMenuConfig() *MenuConfig {
	return &MenuConfig{
		Width:        DefaultBoxWidth,
		ShowKeyHints: true,
	}
}

// adaptWidth returns an appropriate menu width based on terminal size.
func adaptWidth(maxWidth int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		if maxWidth <= 0 {
			return DefaultBoxWidth
		}
		return maxWidth
	}

	availableWidth := width - TerminalEdgeMargin

	if maxWidth > 0 && maxWidth < availableWidth {
		return maxWidth
	}

	if availableWidth < MinMenuWidth {
		return MinMenuWidth
	}

	return availableWidth
}

// runFormWithConfig creates and runs a single-field form, wiring up the
// shared theme, width, and cancellation handling.
func runFormWithConfig(field huh.Field, cfg *MenuConfig, errorContext string) error {
	// Prevents tests (and non-interactive CI invocations) from hanging when
	// a prompt is requested without a terminal attached.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return bisecterrors.ErrNonInteractiveMode
	}

	CheckNoColor()

	width := adaptWidth(cfg.Width)

	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(Theme()).
		WithWidth(width).
		WithShowHelp(cfg.ShowKeyHints)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return bisecterrors.ErrOperationCanceled
		}
		return fmt.Errorf("%s: %w", errorContext, err)
	}

	return nil
}

// Theme returns the Huh theme used by rustbisect's interactive prompts,
// mapping the shared color palette onto Huh's focused/blurred states.
func Theme() *huh.Theme {
	CheckNoColor()

	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorPrimary)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorPrimary)

	t.Focused.SelectedPrefix = t.Focused.SelectedPrefix.Foreground(ColorSuccess)

	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)

	t.Blurred.Base = t.Blurred.Base.BorderForeground(ColorMuted)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorMuted)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Help.Ellipsis = t.Help.Ellipsis.Foreground(ColorMuted)

	return t
}

// ClassificationChoice is one of the options offered by PromptClassification.
type ClassificationChoice string

// Choices a human can give when asked to classify a probe the driver
// could not resolve on its own.
const (
	ClassificationChoiceGood  ClassificationChoice = "good"
	ClassificationChoiceBad   ClassificationChoice = "bad"
	ClassificationChoiceSkip  ClassificationChoice = "skip"
	ClassificationChoiceRetry ClassificationChoice = "retry"
	ClassificationChoiceAbort ClassificationChoice = "abort"
)

// PromptClassification asks the operator to classify the outcome of a probe
// at the given build point. In --prompt mode the answer replaces the
// configured classifier policy for every probe that ran to completion.
func PromptClassification(pointLabel string) (ClassificationChoice, error) {
	options := []huh.Option[ClassificationChoice]{
		huh.NewOption("Good — this build does not reproduce the regression", ClassificationChoiceGood),
		huh.NewOption("Bad — this build reproduces the regression", ClassificationChoiceBad),
		huh.NewOption("Skip — exclude this build point and continue", ClassificationChoiceSkip),
		huh.NewOption("Retry — run the test command again", ClassificationChoiceRetry),
		huh.NewOption("Abort — stop the search", ClassificationChoiceAbort),
	}

	var choice ClassificationChoice

	selectField := huh.NewSelect[ClassificationChoice]().
		Title(fmt.Sprintf("Classify %s", pointLabel)).
		Options(options...).
		Value(&choice)

	if err := runFormWithConfig(selectField, NewMenuConfig(), "classification prompt failed"); err != nil {
		return "", err
	}

	return choice, nil
}

// ConfirmInstall asks for confirmation before installing a toolchain that
// was not requested with --force-install.
func ConfirmInstall(toolchainName string) (bool, error) {
	confirmed := true

	confirmField := huh.NewConfirm().
		Title(fmt.Sprintf("Install toolchain %q via rustup?", toolchainName)).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	if err := runFormWithConfig(confirmField, NewMenuConfig(), "install confirmation failed"); err != nil {
		return false, err
	}

	return confirmed, nil
}
