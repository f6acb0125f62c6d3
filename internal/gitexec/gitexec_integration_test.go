//go:build integration
// +build integration

package gitexec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary git repository with one commit on
// branch "main".
func setupTestRepo(t *testing.T) (*Adapter, string) {
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

	adapter := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	require.NoError(t, adapter.Stage(context.Background(), "README.md"))
	require.NoError(t, adapter.Commit(context.Background(), "chore: initial commit"))
	return adapter, dir
}

func TestIsRepository(t *testing.T) {
	adapter, _ := setupTestRepo(t)
	assert.True(t, adapter.IsRepository(context.Background()))

	outside := New(t.TempDir())
	assert.False(t, outside.IsRepository(context.Background()))
}

func TestCurrentBranchAndCreateAndSwitch(t *testing.T) {
	adapter, _ := setupTestRepo(t)
	ctx := context.Background()

	branch, err := adapter.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	require.NoError(t, adapter.CreateAndSwitch(ctx, "feature/login", "main"))
	branch, err = adapter.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature/login", branch)

	exists, err := adapter.BranchExists(ctx, "feature/login")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStatusClassifiesWorkingTree(t *testing.T) {
	adapter, dir := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# changed\n"), 0o644))

	status, err := adapter.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", status.CurrentBranch)
	assert.Contains(t, status.Untracked, "new.txt")
	assert.Contains(t, status.Modified, "README.md")
	assert.True(t, status.Dirty())
	assert.False(t, status.HasRemoteOrigin)
}

func TestAutoCommitMessage(t *testing.T) {
	adapter, dir := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a\n"), 0o644))
	require.NoError(t, adapter.Stage(ctx, "."))
	require.NoError(t, adapter.Commit(ctx, ""))

	last, err := adapter.LastCommitInfo(ctx)
	require.NoError(t, err)
	assert.Contains(t, last.Message, "Update: add 1 files")
}

func TestDeleteBranchRefusesCurrent(t *testing.T) {
	adapter, _ := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, adapter.CreateAndSwitch(ctx, "feature/x", "main"))
	err := adapter.DeleteBranch(ctx, "feature/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to delete")

	require.NoError(t, adapter.Switch(ctx, "main"))
	require.NoError(t, adapter.DeleteBranch(ctx, "feature/x"))
}

func TestStashRoundTrip(t *testing.T) {
	adapter, dir := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "wip.txt"), []byte("wip\n"), 0o644))
	require.NoError(t, adapter.StashPush(ctx, "test stash"))

	status, err := adapter.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Dirty())

	entries, err := adapter.StashList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, adapter.StashPop(ctx))
	status, err = adapter.Status(ctx)
	require.NoError(t, err)
	assert.Contains(t, status.Untracked, "wip.txt")
}

func TestDiffNameOnly(t *testing.T) {
	adapter, dir := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, adapter.CreateAndSwitch(ctx, "feature/x", "main"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("x\n"), 0o644))
	require.NoError(t, adapter.Stage(ctx, "."))
	require.NoError(t, adapter.Commit(ctx, "feat: add feature file"))

	files, err := adapter.DiffNameOnly(ctx, "main", "feature/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"feature.txt"}, files)
}

func TestCommitsSinceAndLastCommitOf(t *testing.T) {
	adapter, dir := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, adapter.CreateAndSwitch(ctx, "feature/x", "main"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.txt"), []byte("1\n"), 0o644))
	require.NoError(t, adapter.Stage(ctx, "."))
	require.NoError(t, adapter.Commit(ctx, "feat: first"))

	commits, err := adapter.CommitsSince(ctx, "main", "feature/x")
	require.NoError(t, err)
	assert.Len(t, commits, 1)

	last, err := adapter.LastCommitOf(ctx, "feature/x")
	require.NoError(t, err)
	assert.Equal(t, "feat: first", last.Message)
	assert.Equal(t, "Test User", last.Author)
	assert.False(t, last.When.IsZero())
}

func TestErrorsCarryTags(t *testing.T) {
	adapter, _ := setupTestRepo(t)
	ctx := context.Background()

	err := adapter.Switch(ctx, "no-such-branch")
	require.Error(t, err)
	gitErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, TagBranchNotFound, gitErr.Tag)

	outside := New(t.TempDir())
	_, err = outside.Status(ctx)
	require.Error(t, err)
	gitErr, ok = err.(*Error)
	require.True(t, ok)
	assert.Equal(t, TagNotGitRepository, gitErr.Tag)
}
