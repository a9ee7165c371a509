package tui

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutputStyles_NotNil(t *testing.T) {
	styles := NewOutputStyles()
	require.NotNil(t, styles)
}

func TestOutcomeColors_HasAllOutcomes(t *testing.T) {
	colors := OutcomeColors()

	_, ok := colors[OutcomeGood]
	assert.True(t, ok)
	_, ok = colors[OutcomeBad]
	assert.True(t, ok)
	_, ok = colors[OutcomeSkipped]
	assert.True(t, ok)
}

func TestOutcomeIcon_KnownOutcomes(t *testing.T) {
	assert.Equal(t, "✓", OutcomeIcon(OutcomeGood))
	assert.Equal(t, "✗", OutcomeIcon(OutcomeBad))
	assert.Equal(t, "○", OutcomeIcon(OutcomeSkipped))
}

func TestOutcomeIcon_UnknownOutcome(t *testing.T) {
	assert.Equal(t, "?", OutcomeIcon(Outcome("weird")))
}

func TestRenderOutcome_ContainsLabel(t *testing.T) {
	rendered := RenderOutcome(OutcomeGood)
	assert.Contains(t, rendered, "good")
}

func TestRenderOutcome_UnknownFallsBackToRawString(t *testing.T) {
	rendered := RenderOutcome(Outcome("weird"))
	assert.Equal(t, "weird", rendered)
}

func TestHasColorSupport_RespectsNoColor(t *testing.T) {
	orig, had := os.LookupEnv("NO_COLOR")
	defer func() {
		if had {
			_ = os.Setenv("NO_COLOR", orig)
		} else {
			_ = os.Unsetenv("NO_COLOR")
		}
	}()

	require.NoError(t, os.Setenv("NO_COLOR", "1"))
	assert.False(t, HasColorSupport(os.Stdout.Fd()))
}

func TestCheckNoColor_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, CheckNoColor)
}
