//go:build integration
// +build integration

package diagnosis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*gitexec.Adapter, string) {
	t.Helper()
	dir := t.TempDir()

	for _, args := range [][]string{
		{"init", "-b", "main"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), "git %v", args)
	}

	adapter := gitexec.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	require.NoError(t, adapter.Stage(context.Background(), "README.md"))
	require.NoError(t, adapter.Commit(context.Background(), "chore: initial commit"))
	return adapter, dir
}

func hasIssue(report Report, tag string) bool {
	for _, issue := range report.Issues {
		if issue.Tag == tag {
			return true
		}
	}
	return false
}

func hasWarning(report Report, tag string) bool {
	for _, w := range report.Warnings {
		if w.Tag == tag {
			return true
		}
	}
	return false
}

func TestDiagnoseNonRepo(t *testing.T) {
	dir := t.TempDir()
	report, err := Diagnose(context.Background(), gitexec.New(dir), dir, "main")
	require.NoError(t, err)
	assert.True(t, hasIssue(report, "NOT_A_REPOSITORY"))
}

func TestDiagnoseWarnsOnDefaultBranch(t *testing.T) {
	adapter, dir := setupRepo(t)
	report, err := Diagnose(context.Background(), adapter, dir, "main")
	require.NoError(t, err)
	assert.True(t, hasWarning(report, "ON_DEFAULT_BRANCH"))
}

func TestDiagnoseExcessiveUntracked(t *testing.T) {
	adapter, dir := setupRepo(t)
	for i := 0; i < 12; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("file%d.txt", i)), []byte("x\n"), 0o644))
	}

	report, err := Diagnose(context.Background(), adapter, dir, "main")
	require.NoError(t, err)
	assert.True(t, hasIssue(report, "EXCESSIVE_UNTRACKED"))
}

func TestDiagnoseLargeUncommittedBatch(t *testing.T) {
	adapter, dir := setupRepo(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("batch%d.txt", i)), []byte("x\n"), 0o644))
	}

	report, err := Diagnose(context.Background(), adapter, dir, "main")
	require.NoError(t, err)
	assert.True(t, hasWarning(report, "LARGE_UNCOMMITTED_BATCH"))
}

func TestDiagnoseHealthyRepoSuggestsNothingToFix(t *testing.T) {
	adapter, dir := setupRepo(t)

	// Diagnosing against a different default branch silences the
	// on-default-branch warning.
	report, err := Diagnose(context.Background(), adapter, dir, "trunk")
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.NotEmpty(t, report.Suggestions)
}

func TestAnalyzeWorkStatusOnCleanRepo(t *testing.T) {
	adapter, _ := setupRepo(t)

	ws, err := AnalyzeWorkStatus(context.Background(), adapter, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "main", ws.Branch)
	assert.Zero(t, ws.Uncommitted)
	assert.Empty(t, ws.Recommendations)
}
