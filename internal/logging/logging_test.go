package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoOutputs(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)

	// Must be usable without panicking even though nothing is written.
	logger.Info("dropped")
}

func TestNewFileLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "treeline.log")

	logger, err := New(Options{File: file, Level: "debug", MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	logger.Info("hello from test")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"ts"`)
}

func TestNewFileLoggerLevelFilter(t *testing.T) {
	file := filepath.Join(t.TempDir(), "treeline.log")

	logger, err := New(Options{File: file, Level: "warn"})
	require.NoError(t, err)

	logger.Info("too quiet")
	logger.Warn("loud enough")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "too quiet")
	assert.Contains(t, string(data), "loud enough")
}

func TestNewUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loudest"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "info", "debug", "warn", "warning", "error"} {
		_, err := parseLevel(s)
		assert.NoError(t, err, "level %q", s)
	}
	_, err := parseLevel("trace")
	assert.Error(t, err)
}
