package diagnosis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/model"
)

// staleAfterHours and longRunningAfterHours are the staleness and
// long-running thresholds, in hours.
const (
	staleAfterHours       = 24.0
	longRunningAfterHours = 8.0
)

// AnalyzeWorkStatus composes a model.WorkStatus for the current
// branch: sync classification, uncommitted/unpushed counts, branch
// age, staleness, and ranked recommendations. issue is the tracked
// issue the branch name encodes, or nil if none.
func AnalyzeWorkStatus(ctx context.Context, adapter *gitexec.Adapter, issue *model.Issue, now time.Time) (model.WorkStatus, error) {
	status, err := adapter.Status(ctx)
	if err != nil {
		return model.WorkStatus{}, fmt.Errorf("failed to read repository status: %w", err)
	}

	ws := model.WorkStatus{
		Branch:      status.CurrentBranch,
		Sync:        classifySync(status),
		Uncommitted: len(status.Staged) + len(status.Modified) + len(status.Untracked),
		Unpushed:    status.Ahead,
		Issue:       issue,
	}

	if status.CurrentBranch != "" {
		if createdAt, err := adapter.BranchCreatedAt(ctx, status.CurrentBranch); err == nil {
			ws.HoursSinceBranchCreated = now.Sub(createdAt).Hours()
		}
	}
	if lastCommit, err := adapter.LastCommitInfo(ctx); err == nil {
		ws.HoursSinceLastCommit = now.Sub(lastCommit.When).Hours()
	}
	ws.IsStale = ws.HoursSinceLastCommit > staleAfterHours
	ws.IsLongRunning = ws.HoursSinceBranchCreated > longRunningAfterHours

	ws.Recommendations = rank(recommend(ws))
	return ws, nil
}

func classifySync(status model.GitStatus) model.SyncState {
	switch {
	case !status.HasRemoteOrigin:
		return model.SyncNoRemote
	case status.Ahead > 0 && status.Behind > 0:
		return model.SyncDiverged
	case status.Ahead > 0:
		return model.SyncAhead
	case status.Behind > 0:
		return model.SyncBehind
	default:
		return model.SyncUpToDate
	}
}

func recommend(ws model.WorkStatus) []model.Recommendation {
	var recs []model.Recommendation

	if ws.Uncommitted > 0 {
		recs = append(recs, model.Recommendation{
			Type: model.RecCommit, Priority: model.PriorityHigh,
			Title: "Commit your changes", Description: fmt.Sprintf("%d file(s) are uncommitted", ws.Uncommitted),
			Action: "commit",
		})
	}

	switch ws.Sync {
	case model.SyncBehind:
		recs = append(recs, model.Recommendation{
			Type: model.RecPull, Priority: model.PriorityHigh,
			Title: "Pull upstream changes", Description: "the remote branch has commits you do not have",
			Action: "pull",
		})
	case model.SyncDiverged:
		recs = append(recs, model.Recommendation{
			Type: model.RecPull, Priority: model.PriorityHigh,
			Title: "Reconcile diverged history", Description: "local and remote have each moved independently",
			Action: "pull",
		})
		recs = append(recs, model.Recommendation{
			Type: model.RecSync, Priority: model.PriorityMedium,
			Title: "Sync branch", Description: "rebase or merge to reconcile diverged history",
			Action: "sync",
		})
	case model.SyncAhead:
		recs = append(recs, model.Recommendation{
			Type: model.RecPush, Priority: model.PriorityMedium,
			Title: "Push your commits", Description: fmt.Sprintf("%d commit(s) are not on the remote", ws.Unpushed),
			Action: "push",
		})
	}

	if ws.Uncommitted > 0 || ws.Unpushed > 0 {
		recs = append(recs, model.Recommendation{
			Type: model.RecTest, Priority: model.PriorityLow,
			Title: "Run tests", Description: "verify the working tree before pushing or opening a pull request",
			Action: "test",
		})
	}

	if ws.Issue != nil && ws.Issue.State == model.IssueOpen {
		recs = append(recs, model.Recommendation{
			Type: model.RecUpdateIssue, Priority: model.PriorityLow,
			Title: "Update the tracked issue", Description: fmt.Sprintf("issue #%d is still open", ws.Issue.Number),
			Action: "update_issue",
		})
	}

	if ws.IsStale || ws.IsLongRunning {
		recs = append(recs, model.Recommendation{
			Type: model.RecUpdateStatus, Priority: model.PriorityLow,
			Title: "Post a status update", Description: "this branch has been running long enough that teammates may want an update",
			Action: "update_status",
		})
	}

	return recs
}

func rank(recs []model.Recommendation) []model.Recommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		return model.RecommendationRank(recs[i].Type) < model.RecommendationRank(recs[j].Type)
	})
	return recs
}
