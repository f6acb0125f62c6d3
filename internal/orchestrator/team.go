package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/ghgateway"
	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/model"
)

// metricsWindow is the trailing window the Team report's activity
// metrics cover.
const metricsWindow = 7 * 24 * time.Hour

// maxConflictScanBranches caps the pairwise file-conflict scan before
// falling back to sampling, since the comparison is O(n^2).
const maxConflictScanBranches = 50

// BranchActivity is one active non-default branch and its tip commit.
type BranchActivity struct {
	Branch     string
	LastCommit gitexec.LastCommit
}

// FileConflict flags two branches that have both touched the same
// file, a heads-up before either opens a pull request.
type FileConflict struct {
	BranchA string
	BranchB string
	File    string
}

// TeamReport is the assembled result of the Team phase's concurrent
// fan-out: branch activity, open PRs, potential file conflicts, and
// trailing-window metrics.
type TeamReport struct {
	Branches         []BranchActivity
	PullRequests     []model.PullRequest
	Conflicts        []FileConflict
	ConflictsSampled bool
	Metrics          ghgateway.RepoMetrics
	MetricsErr       error
}

// RunTeam drives the Team phase: a concurrent fan-out of
// branch activity, open PR state, a pairwise file-conflict scan, and
// trailing 7-day metrics, assembled into one report.
func RunTeam(ctx context.Context, app *commands.App) (TeamReport, error) {
	if !app.Adapter.IsRepository(ctx) {
		return TeamReport{}, fmt.Errorf("team: the current directory is not a Git repository")
	}

	var (
		wg   sync.WaitGroup
		report TeamReport
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		report.Branches, report.Conflicts, report.ConflictsSampled = gatherBranchActivity(ctx, app)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if app.Gateway.Available() {
			if prs, err := app.Gateway.ListOpenPRsWithReviews(ctx); err == nil {
				report.PullRequests = prs
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if app.Gateway.Available() {
			metrics, err := app.Gateway.GetRepoMetricsWindow(ctx, metricsWindow)
			if err != nil {
				report.MetricsErr = err
				return
			}
			report.Metrics = metrics
		}
	}()

	wg.Wait()
	return report, nil
}

// gatherBranchActivity lists every non-default local branch with its
// tip commit, then pairwise-scans their changed files for overlaps.
// Scans are sampled (not exhaustive) once the branch count exceeds
// maxConflictScanBranches, since the comparison is O(n^2).
func gatherBranchActivity(ctx context.Context, app *commands.App) ([]BranchActivity, []FileConflict, bool) {
	local, err := app.Adapter.LocalBranches(ctx)
	if err != nil {
		return nil, nil, false
	}

	defaultBranch := app.Config.DefaultBranch
	var active []BranchActivity
	changedFiles := map[string][]string{}

	for _, branch := range local {
		if branch == defaultBranch {
			continue
		}
		lastCommit, err := app.Adapter.LastCommitOf(ctx, branch)
		if err != nil {
			continue
		}
		active = append(active, BranchActivity{Branch: branch, LastCommit: lastCommit})

		if files, err := app.Adapter.DiffNameOnly(ctx, defaultBranch, branch); err == nil {
			changedFiles[branch] = files
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].LastCommit.When.After(active[j].LastCommit.When)
	})

	sampled := false
	scanSet := active
	if len(scanSet) > maxConflictScanBranches {
		scanSet = scanSet[:maxConflictScanBranches]
		sampled = true
	}

	var conflicts []FileConflict
	for i := 0; i < len(scanSet); i++ {
		for j := i + 1; j < len(scanSet); j++ {
			a, b := scanSet[i].Branch, scanSet[j].Branch
			seen := map[string]struct{}{}
			for _, f := range changedFiles[a] {
				seen[f] = struct{}{}
			}
			for _, f := range changedFiles[b] {
				if _, ok := seen[f]; ok {
					conflicts = append(conflicts, FileConflict{BranchA: a, BranchB: b, File: f})
				}
			}
		}
	}

	return active, conflicts, sampled
}
