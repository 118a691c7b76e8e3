package logging

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONRecordsWithRunID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(WithDir(dir), WithRunID("run-42"))
	require.NoError(t, err)

	logger.Logger.With("scenario", "Initialize").Info("scenario finished")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &record))
	assert.Equal(t, "run-42", record["run_id"])
	assert.Equal(t, "Initialize", record["scenario"])
}

func TestNewNamesFileByRunID(t *testing.T) {
	t.Parallel()

	logger, err := New(WithDir(t.TempDir()), WithRunID("abc"))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, logger.Close())
	}()

	assert.Contains(t, logger.Path(), "-abc.log")
}

func TestCloseOnNilLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var logger *RunLogger
	assert.NoError(t, logger.Close())
	assert.Empty(t, logger.Path())
}
