package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/models"
	"gatekeeper/internal/version"
)

func testVersion() version.Info {
	return version.Info{
		Version:    "1.2.3",
		GitCommit:  "abc1234",
		InstanceID: "test-instance",
	}
}

func TestSetup_JSONStdout(t *testing.T) {
	logger, closer, err := Setup(models.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, testVersion())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Nil(t, closer, "stdout needs no closer")
}

func TestSetup_TextStderr(t *testing.T) {
	logger, closer, err := Setup(models.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "stderr",
	}, testVersion())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Nil(t, closer)
}

func TestSetup_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "gatekeeper.log")

	logger, closer, err := Setup(models.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
	}, testVersion())
	require.NoError(t, err)
	require.NotNil(t, closer, "file output must return a closer")

	logger.Info("test message", "key", "value")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "test message")
	assert.Contains(t, content, `"version":"1.2.3"`)
	assert.Contains(t, content, `"git_commit":"abc1234"`)
	assert.Contains(t, content, `"instance_id":"test-instance"`)
}

func TestSetup_FileOutputRequiresPath(t *testing.T) {
	_, _, err := Setup(models.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
	}, testVersion())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file path is required")
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, _, err := Setup(models.LoggingConfig{
		Level:  "verbose",
		Format: "json",
		Output: "stdout",
	}, testVersion())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"ERROR", slog.LevelError, false},
		{"Debug", slog.LevelDebug, false},
		{"trace", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSetup_LevelFiltersMessages(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "filtered.log")

	logger, closer, err := Setup(models.LoggingConfig{
		Level:    "warn",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
	}, testVersion())
	require.NoError(t, err)

	logger.Info("should be dropped")
	logger.Warn("should appear")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be dropped")
	assert.Contains(t, string(data), "should appear")
}
