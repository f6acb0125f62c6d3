package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowteam/flowctl/internal/backupstore"
	"github.com/flowteam/flowctl/internal/cfgtree"
	"github.com/flowteam/flowctl/internal/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirmer struct {
	answer bool
	asked  int
}

func (f *fakeConfirmer) Confirm(string) bool {
	f.asked++
	return f.answer
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	m := NewManager(nil, nil, nil, root,
		filepath.Join(root, ".teamflow", "state", "offline-mode.json"),
		filepath.Join(root, ".teamflow", "config.json"))
	m.base = time.Millisecond
	return m, root
}

func TestBackoffSchedule(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// Attempts 1..maxRetries succeed with doubling waits; the next
	// attempt exceeds the bound and surfaces failure.
	for i := 0; i < DefaultMaxRetries; i++ {
		retried, _, err := m.Recover(ctx, classify.TagNetworkTimeout, errors.New("timeout"))
		require.NoError(t, err)
		assert.True(t, retried, "attempt %d should schedule a retry", i+1)
	}

	retried, detail, err := m.Recover(ctx, classify.TagNetworkTimeout, errors.New("timeout"))
	require.NoError(t, err)
	assert.False(t, retried)
	assert.Contains(t, detail, "exceeded 3 retries")

	history := m.History()
	require.Len(t, history, DefaultMaxRetries+1)
	for i := 0; i < DefaultMaxRetries; i++ {
		assert.True(t, history[i].Success)
		assert.Equal(t, "exponential_backoff", history[i].Strategy)
	}
	assert.False(t, history[DefaultMaxRetries].Success)
}

func TestBackoffDoublesWaits(t *testing.T) {
	m, _ := newTestManager(t)
	m.base = 10 * time.Millisecond
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < DefaultMaxRetries; i++ {
		retried, _, err := m.Recover(ctx, classify.TagAPIRateLimit, errors.New("rate limit"))
		require.NoError(t, err)
		require.True(t, retried)
	}
	elapsed := time.Since(start)

	// base + 2*base + 4*base = 7*base
	assert.GreaterOrEqual(t, elapsed, 7*m.base)
}

func TestBackoffResetsAfterBoundExceeded(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < DefaultMaxRetries+1; i++ {
		_, _, err := m.Recover(ctx, classify.TagNetworkTimeout, errors.New("timeout"))
		require.NoError(t, err)
	}

	// A fresh failure after the bound starts a new schedule.
	retried, _, err := m.Recover(ctx, classify.TagNetworkTimeout, errors.New("timeout"))
	require.NoError(t, err)
	assert.True(t, retried)
}

func TestBackoffRespectsCancellation(t *testing.T) {
	m, _ := newTestManager(t)
	m.base = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.Recover(ctx, classify.TagNetworkTimeout, errors.New("timeout"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnableOfflineMode(t *testing.T) {
	m, _ := newTestManager(t)

	recovered, detail, err := m.Recover(context.Background(), classify.TagConnectionRefused, errors.New("dial tcp: connection refused"))
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, "offline-enabled", detail)

	data, err := os.ReadFile(m.offlineStatePath)
	require.NoError(t, err)
	var marker offlineMarker
	require.NoError(t, json.Unmarshal(data, &marker))
	assert.True(t, marker.Offline)
	assert.Contains(t, marker.Reason, "connection refused")
}

func TestWriteDefaultContent(t *testing.T) {
	m, root := newTestManager(t)

	recovered, detail, err := m.Recover(context.Background(), classify.TagFileNotFound, errors.New("open .gitignore: no such file or directory"))
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Contains(t, detail, ".gitignore")

	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, backupstore.DefaultContent[".gitignore"], string(content))
}

func TestWriteDefaultContentUnknownFile(t *testing.T) {
	m, _ := newTestManager(t)

	recovered, _, err := m.Recover(context.Background(), classify.TagFileNotFound, errors.New("open mystery.bin: no such file"))
	require.NoError(t, err)
	assert.False(t, recovered)
}

func TestWriteDefaultConfig(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(m.projectConfigPath), 0o755))

	recovered, _, err := m.Recover(context.Background(), classify.TagConfigurationMissing, errors.New("config missing"))
	require.NoError(t, err)
	assert.True(t, recovered)

	loaded, err := cfgtree.LoadProjectConfig(m.projectConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.DefaultBranch)
}

func TestRestoreFromBackupDeclined(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("GITHUB_TOKEN=x\n"), 0o600))

	store := backupstore.New(filepath.Join(root, ".teamflow", "backups"), root, "", nil, nil)
	_, err := store.CreateFull(context.Background(), "test")
	require.NoError(t, err)

	confirmer := &fakeConfirmer{answer: false}
	m := NewManager(nil, store, confirmer, root, "", "")

	recovered, detail, err := m.Recover(context.Background(), classify.TagMergeConflict, errors.New("merge conflict"))
	require.NoError(t, err)
	assert.False(t, recovered)
	assert.Equal(t, "declined by user", detail)
	assert.Equal(t, 1, confirmer.asked)
}

func TestRestoreFromBackupConfirmed(t *testing.T) {
	root := t.TempDir()
	envPath := filepath.Join(root, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("ORIGINAL\n"), 0o600))

	store := backupstore.New(filepath.Join(root, ".teamflow", "backups"), root, "", nil, nil)
	_, err := store.CreateFull(context.Background(), "test")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(envPath, []byte("CLOBBERED\n"), 0o600))

	confirmer := &fakeConfirmer{answer: true}
	m := NewManager(nil, store, confirmer, root, "", "")

	recovered, _, err := m.Recover(context.Background(), classify.TagMergeConflict, errors.New("merge conflict"))
	require.NoError(t, err)
	assert.True(t, recovered)

	content, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Equal(t, "ORIGINAL\n", string(content))
}

func TestRestoreWithoutStore(t *testing.T) {
	m, _ := newTestManager(t)
	recovered, _, err := m.Recover(context.Background(), classify.TagMergeConflict, errors.New("merge conflict"))
	require.NoError(t, err)
	assert.False(t, recovered)
}

func TestUnknownTagHasNoStrategy(t *testing.T) {
	m, _ := newTestManager(t)
	recovered, _, err := m.Recover(context.Background(), classify.TagRepoCorruption, errors.New("corrupt"))
	require.NoError(t, err)
	assert.False(t, recovered)

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, "none", history[0].Strategy)
}

func TestHistoryIsBounded(t *testing.T) {
	m, _ := newTestManager(t)
	m.historyCap = 5

	for i := 0; i < 20; i++ {
		m.record(classify.TagNetworkTimeout, "exponential_backoff", true, "x")
	}

	assert.Len(t, m.History(), 5)
}
