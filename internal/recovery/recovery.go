// Package recovery implements the recovery manager: a strategy table
// keyed by error-type tag, backed by cenkalti/backoff/v4 for
// exponential retry scheduling, a bounded ring-buffer attempt history,
// and the backup-store and configuration fallbacks the other
// strategies need.
package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/flowteam/flowctl/internal/backupstore"
	"github.com/flowteam/flowctl/internal/cfgtree"
	"github.com/flowteam/flowctl/internal/classify"
)

// DefaultMaxRetries bounds exponential-backoff strategies.
const DefaultMaxRetries = 3

// DefaultBaseInterval is the backoff base (N-th wait = base*2^(N-1)).
const DefaultBaseInterval = time.Second

// DefaultHistoryCap bounds the in-memory attempt history.
const DefaultHistoryCap = 100

// Confirmer abstracts the interactive confirmation prompt the
// MERGE_CONFLICT strategy requires. The concrete implementation lives
// behind the orchestrator's Prompter.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Attempt is one recorded recovery attempt.
type Attempt struct {
	ErrorType classify.Tag
	Strategy  string
	Success   bool
	Context   string
	Timestamp time.Time
}

// Manager is the Recovery Manager. It satisfies classify.Recoverer.
type Manager struct {
	logger            *slog.Logger
	store             *backupstore.Store
	confirmer         Confirmer
	repoRoot          string
	offlineStatePath  string
	projectConfigPath string

	maxRetries int
	base       time.Duration
	historyCap int

	mu       sync.Mutex
	backoffs map[classify.Tag]backoff.BackOff
	history  []Attempt
}

// NewManager constructs a Manager with the default retry bound and
// backoff base. store and confirmer may be nil: MERGE_CONFLICT then
// always reports failure rather than attempting a restore.
func NewManager(logger *slog.Logger, store *backupstore.Store, confirmer Confirmer, repoRoot, offlineStatePath, projectConfigPath string) *Manager {
	return &Manager{
		logger:            logger,
		store:             store,
		confirmer:         confirmer,
		repoRoot:          repoRoot,
		offlineStatePath:  offlineStatePath,
		projectConfigPath: projectConfigPath,
		maxRetries:        DefaultMaxRetries,
		base:              DefaultBaseInterval,
		historyCap:        DefaultHistoryCap,
		backoffs:          map[classify.Tag]backoff.BackOff{},
	}
}

// Recover dispatches tag to its strategy. Tags with no entry report
// failure without side effects.
func (m *Manager) Recover(ctx context.Context, tag classify.Tag, cause error) (bool, string, error) {
	switch tag {
	case classify.TagNetworkTimeout, classify.TagAPIRateLimit:
		return m.retryWithBackoff(ctx, tag)
	case classify.TagConnectionRefused:
		return m.enableOfflineMode(tag, cause)
	case classify.TagMergeConflict:
		return m.restoreFromBackup(ctx, tag)
	case classify.TagFileNotFound:
		return m.writeDefaultContent(tag, cause)
	case classify.TagConfigurationMissing:
		return m.writeDefaultConfig(tag)
	default:
		m.record(tag, "none", false, "no recovery strategy for this error type")
		return false, "", nil
	}
}

// backoffFor returns this tag's bounded exponential backoff,
// constructing it on first use. The schedule is base, base*2, base*4,
// up to maxRetries attempts (the Nth wait is base * 2^(N-1)).
func (m *Manager) backoffFor(tag classify.Tag) backoff.BackOff {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.backoffs[tag]
	if !ok {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = m.base
		eb.Multiplier = 2
		eb.RandomizationFactor = 0
		b = backoff.WithMaxRetries(eb, uint64(m.maxRetries))
		m.backoffs[tag] = b
	}
	return b
}

func (m *Manager) resetBackoff(tag classify.Tag) {
	m.mu.Lock()
	delete(m.backoffs, tag)
	m.mu.Unlock()
}

func (m *Manager) retryWithBackoff(ctx context.Context, tag classify.Tag) (bool, string, error) {
	wait := m.backoffFor(tag).NextBackOff()
	if wait == backoff.Stop {
		m.resetBackoff(tag)
		detail := fmt.Sprintf("exceeded %d retries", m.maxRetries)
		m.record(tag, "exponential_backoff", false, detail)
		return false, detail, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return false, "", ctx.Err()
	}

	detail := fmt.Sprintf("waited %s before retry", wait)
	m.record(tag, "exponential_backoff", true, detail)
	return true, detail, nil
}

type offlineMarker struct {
	Offline bool   `json:"offline"`
	Reason  string `json:"reason"`
}

func (m *Manager) enableOfflineMode(tag classify.Tag, cause error) (bool, string, error) {
	reason := fmt.Sprintf("connection refused: %v", cause)
	data, err := json.MarshalIndent(offlineMarker{Offline: true, Reason: reason}, "", "  ")
	if err != nil {
		return false, "", fmt.Errorf("failed to marshal offline marker: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.offlineStatePath), 0o755); err != nil {
		return false, "", fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(m.offlineStatePath, data, 0o600); err != nil {
		return false, "", fmt.Errorf("failed to persist offline marker: %w", err)
	}
	m.record(tag, "enable_offline_mode", true, reason)
	return true, "offline-enabled", nil
}

func (m *Manager) restoreFromBackup(ctx context.Context, tag classify.Tag) (bool, string, error) {
	if m.store == nil {
		m.record(tag, "restore_from_backup", false, "no backup store configured")
		return false, "", nil
	}
	backups, err := m.store.List()
	if err != nil {
		return false, "", fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		m.record(tag, "restore_from_backup", false, "no backups available")
		return false, "", nil
	}
	if m.confirmer != nil && !m.confirmer.Confirm("A merge conflict occurred. Restore the working tree from the most recent backup?") {
		m.record(tag, "restore_from_backup", false, "declined by user")
		return false, "declined by user", nil
	}

	latest := backups[0]
	if err := m.store.Restore(ctx, latest.ID); err != nil {
		m.record(tag, "restore_from_backup", false, err.Error())
		return false, "", fmt.Errorf("restore from backup %s failed: %w", latest.ID, err)
	}
	detail := fmt.Sprintf("restored from backup %s", latest.ID)
	m.record(tag, "restore_from_backup", true, detail)
	return true, detail, nil
}

func (m *Manager) writeDefaultContent(tag classify.Tag, cause error) (bool, string, error) {
	msg := cause.Error()
	for name, content := range backupstore.DefaultContent {
		if !strings.Contains(msg, name) {
			continue
		}
		path := filepath.Join(m.repoRoot, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			m.record(tag, "write_default_content", false, err.Error())
			return false, "", fmt.Errorf("failed to write default content for %s: %w", name, err)
		}
		detail := fmt.Sprintf("wrote default content for %s", name)
		m.record(tag, "write_default_content", true, detail)
		return true, detail, nil
	}
	m.record(tag, "write_default_content", false, "no matching default-content entry for the missing path")
	return false, "", nil
}

func (m *Manager) writeDefaultConfig(tag classify.Tag) (bool, string, error) {
	if m.projectConfigPath == "" {
		m.record(tag, "write_default_config", false, "no project config path configured")
		return false, "", nil
	}
	cfg := &cfgtree.ProjectConfig{DefaultBranch: "main"}
	if err := cfgtree.SaveProjectConfig(m.projectConfigPath, cfg); err != nil {
		m.record(tag, "write_default_config", false, err.Error())
		return false, "", err
	}
	m.record(tag, "write_default_config", true, m.projectConfigPath)
	return true, "wrote default project configuration", nil
}

func (m *Manager) record(tag classify.Tag, strategy string, success bool, context string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, Attempt{
		ErrorType: tag,
		Strategy:  strategy,
		Success:   success,
		Context:   context,
		Timestamp: time.Now().UTC(),
	})
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
}

// History returns a copy of the bounded attempt history, oldest first.
func (m *Manager) History() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attempt, len(m.history))
	copy(out, m.history)
	return out
}
