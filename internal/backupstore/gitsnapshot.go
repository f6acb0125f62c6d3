package backupstore

import (
	"context"
	"time"

	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/model"
)

// GitSnapshot is the optional "git-info.json" captured alongside a
// backup: current branch, working-tree status, remote URL, and last
// commit.
type GitSnapshot struct {
	CurrentBranch string           `json:"current_branch"`
	Status        model.GitStatus  `json:"status"`
	RemoteURL     string           `json:"remote_url"`
	LastCommit    gitexec.LastCommit `json:"last_commit"`
	CapturedAt    time.Time        `json:"captured_at"`
}

// captureGitSnapshot gathers a GitSnapshot via adapter. It returns a
// nil snapshot, not an error, when the working directory is not a Git
// repository; a backup without a git snapshot is still valid.
func captureGitSnapshot(ctx context.Context, adapter *gitexec.Adapter) (*GitSnapshot, error) {
	if adapter == nil || !adapter.IsRepository(ctx) {
		return nil, nil
	}

	branch, err := adapter.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	status, err := adapter.Status(ctx)
	if err != nil {
		return nil, err
	}
	remoteURL, _ := adapter.RemoteURL(ctx) // absent remote is not fatal
	lastCommit, err := adapter.LastCommitInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &GitSnapshot{
		CurrentBranch: branch,
		Status:        status,
		RemoteURL:     remoteURL,
		LastCommit:    lastCommit,
		CapturedAt:    time.Now().UTC(),
	}, nil
}
