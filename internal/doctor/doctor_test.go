package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBinary(t *testing.T, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "xcode-build-mcp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
	return path
}

func TestRunPassesForExecutableBinary(t *testing.T) {
	t.Parallel()

	checker, err := NewChecker(writeBinary(t, 0o755))
	require.NoError(t, err)

	report := checker.Run()
	assert.True(t, report.Healthy())
	assert.Len(t, report.Checks, 3)
}

func TestRunFailsForMissingBinary(t *testing.T) {
	t.Parallel()

	checker, err := NewChecker(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	report := checker.Run()
	assert.False(t, report.Healthy())
	require.Len(t, report.Checks, 1)
	assert.Contains(t, report.Checks[0].Detail, "not found")
}

func TestRunFailsForNonExecutableBinary(t *testing.T) {
	t.Parallel()

	checker, err := NewChecker(writeBinary(t, 0o644))
	require.NoError(t, err)

	report := checker.Run()
	assert.False(t, report.Healthy())

	var executable *Check
	for i := range report.Checks {
		if report.Checks[i].Name == "server binary is executable" {
			executable = &report.Checks[i]
		}
	}
	require.NotNil(t, executable)
	assert.False(t, executable.Passed)
}

func TestRunFailsForDirectoryPath(t *testing.T) {
	t.Parallel()

	checker, err := NewChecker(t.TempDir())
	require.NoError(t, err)

	assert.False(t, checker.Run().Healthy())
}

func TestNewCheckerRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewChecker("   ")
	require.Error(t, err)
}
