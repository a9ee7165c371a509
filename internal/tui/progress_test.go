package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressBar_NotNil(t *testing.T) {
	bar := NewProgressBar(40)
	require.NotNil(t, bar)
	assert.Equal(t, 40, bar.width)
}

func TestProgressBar_ViewAt(t *testing.T) {
	bar := NewProgressBar(40)
	view := bar.ViewAt(0.5)
	assert.NotEmpty(t, view)
}

func TestFormatByteProgress_WithTotal(t *testing.T) {
	out := FormatByteProgress(1024, 2048)
	assert.Equal(t, "1.0 KiB / 2.0 KiB", out)
}

func TestFormatByteProgress_UnknownTotal(t *testing.T) {
	out := FormatByteProgress(512, 0)
	assert.Equal(t, "512 B", out)
}

func TestFormatBytes_Bytes(t *testing.T) {
	assert.Equal(t, "999 B", formatBytes(999))
}

func TestFormatBytes_Mebibytes(t *testing.T) {
	assert.Equal(t, "1.0 MiB", formatBytes(1024*1024))
}

func TestStepCounter_FormatsRange(t *testing.T) {
	out := StepCounter(3, 10)
	assert.Contains(t, out, "3/10")
}
