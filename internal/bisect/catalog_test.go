package bisect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/rustbisect/internal/bisect"
)

func TestBuildDownloadTasks_Nightly(t *testing.T) {
	t.Parallel()

	point := bisect.NewNightly(time.Date(2018, time.July, 30, 0, 0, 0, 0, time.UTC))
	tasks, err := bisect.BuildDownloadTasks(point, bisect.ComponentSelection{
		Host:         "x86_64-unknown-linux-gnu",
		IncludeCargo: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tasks)

	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Component
		assert.Contains(t, task.URL, "2018-07-30")
		assert.Equal(t, bisect.CompressionXZ, task.Compression)
	}
	assert.Contains(t, names, "rustc")
	assert.Contains(t, names, "cargo")
}

func TestBuildDownloadTasks_CommitAlt(t *testing.T) {
	t.Parallel()

	point := bisect.NewCommit("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", time.Now())
	tasks, err := bisect.BuildDownloadTasks(point, bisect.ComponentSelection{
		Host: "x86_64-unknown-linux-gnu",
		Alt:  true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
	for _, task := range tasks {
		assert.Contains(t, task.URL, "-alt.tar.xz")
	}
}

func TestBuildDownloadTasks_WithoutCargo(t *testing.T) {
	t.Parallel()

	point := bisect.NewNightly(time.Now())
	tasks, err := bisect.BuildDownloadTasks(point, bisect.ComponentSelection{
		Host:         "x86_64-unknown-linux-gnu",
		IncludeCargo: false,
	})
	require.NoError(t, err)
	for _, task := range tasks {
		assert.NotEqual(t, "cargo", task.Component)
	}
}

func TestRollupDownloadTask_RejectsUnsupportedHost(t *testing.T) {
	t.Parallel()

	_, err := bisect.RollupDownloadTask("abc123", "aarch64-apple-darwin")
	require.Error(t, err)
}

func TestRollupDownloadTask_SupportedHost(t *testing.T) {
	t.Parallel()

	task, err := bisect.RollupDownloadTask("abc123", "x86_64-unknown-linux-gnu")
	require.NoError(t, err)
	assert.Contains(t, task.URL, "abc123")
}
