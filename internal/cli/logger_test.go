package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/rustbisect/internal/constants"
	"github.com/mrz1836/rustbisect/internal/logging"
)

func TestInitLogger_VerboseMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(true, false, &buf)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestInitLogger_QuietMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, true, &buf)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestInitLogger_DefaultMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestSelectLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verbose       bool
		quiet         bool
		expectedLevel zerolog.Level
	}{
		{name: "default returns info", verbose: false, quiet: false, expectedLevel: zerolog.InfoLevel},
		{name: "verbose returns debug", verbose: true, quiet: false, expectedLevel: zerolog.DebugLevel},
		{name: "quiet returns warn", verbose: false, quiet: true, expectedLevel: zerolog.WarnLevel},
		{name: "verbose takes precedence", verbose: true, quiet: true, expectedLevel: zerolog.DebugLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expectedLevel, selectLevel(tc.verbose, tc.quiet))
		})
	}
}

func TestSelectOutput_NonTTY(t *testing.T) {
	// This test runs in a non-TTY environment (typical for CI/tests), where
	// selectOutput always returns os.Stderr regardless of NO_COLOR.
	output := selectOutput()
	assert.Equal(t, os.Stderr, output)
}

func TestSelectOutput_RespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	output := selectOutput()
	assert.Equal(t, os.Stderr, output)
}

func TestCreateLogFileWriter_CreatesDirectoryAndFile(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv().
	tmpDir := t.TempDir()
	t.Setenv(constants.EnvToolchainHome, tmpDir)

	writer, err := createLogFileWriter()
	require.NoError(t, err)
	require.NotNil(t, writer)

	_, err = writer.Write([]byte(`{"level":"info","event":"test"}`))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	logDir := filepath.Join(tmpDir, constants.LogsDir)
	info, err := os.Stat(logDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	logPath := filepath.Join(logDir, constants.CLILogFileName)
	fileInfo, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Positive(t, fileInfo.Size())
}

func TestCreateLogFileWriter_FailsOnInvalidPath(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "not_a_directory")
	require.NoError(t, os.WriteFile(filePath, []byte("test"), 0o600))

	t.Setenv(constants.EnvToolchainHome, filePath)

	writer, err := createLogFileWriter()
	require.Error(t, err)
	assert.Nil(t, writer)
	assert.Contains(t, err.Error(), "failed to create log directory")
}

func TestLogFilePath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(constants.EnvToolchainHome, tmpDir)

	path, err := LogFilePath()
	require.NoError(t, err)

	expected := filepath.Join(tmpDir, constants.LogsDir, constants.CLILogFileName)
	assert.Equal(t, expected, path)
}

func TestInitLogger_WritesToFileAndRedactsSensitiveData(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(constants.EnvToolchainHome, tmpDir)
	logFileWriter = nil

	logger := InitLogger(false, false)
	logger.Info().Str("test_key", "test_value").Msg("connecting with key sk-ant-REDACTED")
	CloseLogFile()

	logPath := filepath.Join(tmpDir, constants.LogsDir, constants.CLILogFileName)
	data, err := os.ReadFile(logPath) //#nosec G304 -- path is constructed from test temp dir
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "test_key")
	assert.Contains(t, content, "test_value")
	assert.Contains(t, content, "[REDACTED]")
	assert.NotContains(t, content, "verysecretkey")
}

func TestInitLogger_HandlesFileCreationFailure(t *testing.T) {
	t.Setenv(constants.EnvToolchainHome, "/dev/null/invalid")
	logFileWriter = nil

	logger := InitLogger(false, false)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	assert.Nil(t, logFileWriter)
}

func TestCloseLogFile_NoOpWhenNil(_ *testing.T) {
	logFileWriter = nil
	CloseLogFile()
}

func TestInitLoggerWithWriter_CustomOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(true, false, &buf)
	logger.Debug().Msg("debug message")

	assert.Contains(t, buf.String(), "debug message")
}

func TestConfigureZerologGlobals_Idempotent(t *testing.T) {
	t.Parallel()

	configureZerologGlobals()
	configureZerologGlobals()

	assert.Equal(t, "ts", zerolog.TimestampFieldName)
	assert.Equal(t, "event", zerolog.MessageFieldName)
}

func TestPrepareLoggerSetup(t *testing.T) {
	t.Run("creates setup with correct level and hook", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv(constants.EnvToolchainHome, tmpDir)

		setup, err := prepareLoggerSetup(true, false)
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, setup.level)
		assert.NotNil(t, setup.hook)
		assert.NotNil(t, setup.console)
		assert.NotNil(t, setup.fileWriter)
	})

	t.Run("handles file writer creation error gracefully", func(t *testing.T) {
		t.Setenv(constants.EnvToolchainHome, "/dev/null/invalid")

		setup, err := prepareLoggerSetup(false, false)
		require.Error(t, err)
		assert.Equal(t, zerolog.InfoLevel, setup.level)
		assert.NotNil(t, setup.console)
		assert.Nil(t, setup.fileWriter)
	})
}

func TestBuildLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	setup := &loggerSetup{level: zerolog.DebugLevel, hook: logging.NewSensitiveDataHook()}
	logger := buildLogger(setup, &buf)

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	assert.NotEqual(t, zerolog.Logger{}, logger)
}

func TestFilteringWriteCloser(t *testing.T) {
	t.Parallel()

	t.Run("Write delegates to filter", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		fwc := &filteringWriteCloser{filter: logging.NewFilteringWriter(&buf), closer: os.Stdin}

		n, err := fwc.Write([]byte("test message"))
		require.NoError(t, err)
		assert.Equal(t, len("test message"), n)
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("Close delegates to closer", func(t *testing.T) {
		t.Parallel()

		tmpFile := filepath.Join(t.TempDir(), "test.log")
		file, err := os.Create(tmpFile) //#nosec G304 -- test file
		require.NoError(t, err)

		fwc := &filteringWriteCloser{filter: logging.NewFilteringWriter(file), closer: file}
		require.NoError(t, fwc.Close())

		_, err = file.WriteString("should fail")
		require.Error(t, err)
	})
}
