package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTestRunner(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantKind string
	}{
		{"jest js config", "jest.config.js", "jest"},
		{"jest ts config", "jest.config.ts", "jest"},
		{"vitest", "vitest.config.ts", "vitest"},
		{"pytest ini", "pytest.ini", "pytest"},
		{"go module", "go.mod", "go"},
		{"makefile", "Makefile", "make"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(""), 0o600))

			runner, ok := DetectTestRunner(dir)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, runner.Kind)
			assert.NotEmpty(t, runner.RunCmd)
		})
	}
}

func TestDetectTestRunnerNothingFound(t *testing.T) {
	_, ok := DetectTestRunner(t.TempDir())
	assert.False(t, ok)
}

func TestRunnerRunReportsExitStatus(t *testing.T) {
	dir := t.TempDir()

	passing := TestRunner{Kind: "fake", RunCmd: []string{"true"}}
	assert.NoError(t, passing.Run(context.Background(), dir))

	failing := TestRunner{Kind: "fake", RunCmd: []string{"false"}}
	assert.Error(t, failing.Run(context.Background(), dir))
}

func TestRunnerRunRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := TestRunner{Kind: "fake", RunCmd: []string{"sleep", "10"}}
	assert.Error(t, runner.Run(ctx, t.TempDir()))
}

func TestDetectTestRunnerFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jest.config.js"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte(""), 0o600))

	runner, ok := DetectTestRunner(dir)
	require.True(t, ok)
	assert.Equal(t, "jest", runner.Kind)
}
