package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowteam/flowctl/internal/branchplan"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/diagnosis"
	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/model"
)

// RunContinue drives the Continue phase: Analyze → Rank →
// dispatch(action) for the highest-ranked recommendation the operator
// accepts.
func RunContinue(ctx context.Context, app *commands.App, prompter Prompter) (model.PhaseResult, error) {
	if !app.Adapter.IsRepository(ctx) {
		return aborted("NOT_A_REPOSITORY", "the current directory is not a Git repository"), nil
	}

	branch, err := app.Adapter.CurrentBranch(ctx)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to read current branch: %w", err)
	}

	var issue *model.Issue
	if n, ok := branchplan.IssueNumberFromBranch(branch); ok && app.Gateway.Available() {
		if got, err := app.Gateway.GetIssue(ctx, n); err == nil {
			issue = &got
		}
	}

	status, err := diagnosis.AnalyzeWorkStatus(ctx, app.Adapter, issue, time.Now())
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to analyze work status: %w", err)
	}

	if len(status.Recommendations) == 0 {
		return done(branch, issue, nil, "nothing to do; work is up to date"), nil
	}

	// Offer recommendations in rank order; a declined one is skipped,
	// not fatal; only declining every recommendation aborts the phase.
	var top *model.Recommendation
	for i := range status.Recommendations {
		rec := &status.Recommendations[i]
		if prompter.Confirm(fmt.Sprintf("%s — %s. proceed?", rec.Title, rec.Description)) {
			top = rec
			break
		}
	}
	if top == nil {
		return aborted("USER_DECLINED_RECOMMENDATION", "every recommended action was declined"), nil
	}

	switch top.Type {
	case model.RecCommit:
		return dispatchCommit(ctx, app, prompter, branch, issue)
	case model.RecPull:
		return dispatchPull(ctx, app, branch, issue)
	case model.RecPush:
		return dispatchPush(ctx, app, branch, issue)
	case model.RecSync:
		return dispatchSync(ctx, app, prompter, branch, issue)
	case model.RecTest:
		return dispatchTest(ctx, app, branch, issue)
	case model.RecUpdateIssue:
		return dispatchUpdateIssue(ctx, app, prompter, branch, issue)
	case model.RecUpdateStatus:
		return done(branch, issue, nil, "status acknowledged; no action taken"), nil
	default:
		return aborted("UNKNOWN_RECOMMENDATION", fmt.Sprintf("unrecognized recommendation type %q", top.Type)), nil
	}
}

// conventionalCommitTypes are the Conventional Commits tags offered
// when composing a commit message.
var conventionalCommitTypes = []string{"feat", "fix", "docs", "refactor", "test", "chore", "perf"}

// composeCommitMessage asks for a type and description and builds a
// Conventional-Commits message, refusing an empty description or one
// that starts upper-case or ends in a period.
func composeCommitMessage(prompter Prompter) (string, bool) {
	idx, ok := prompter.Select("commit type:", conventionalCommitTypes)
	if !ok {
		return "", false
	}
	desc, ok := prompter.Input("short description:")
	if !ok || desc == "" {
		return "", false
	}
	if desc[0] >= 'A' && desc[0] <= 'Z' {
		return "", false
	}
	if strings.HasSuffix(desc, ".") {
		return "", false
	}
	return fmt.Sprintf("%s: %s", conventionalCommitTypes[idx], desc), true
}

func dispatchCommit(ctx context.Context, app *commands.App, prompter Prompter, branch string, issue *model.Issue) (model.PhaseResult, error) {
	message, ok := composeCommitMessage(prompter)
	if !ok {
		return aborted("INVALID_COMMIT_MESSAGE", "commit message was empty, cancelled, or malformed"), nil
	}
	if err := app.Adapter.Stage(ctx, "."); err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to stage changes: %w", err)
	}
	if err := app.Adapter.Commit(ctx, message); err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to commit: %w", err)
	}
	return done(branch, issue, nil, "committed: "+message), nil
}

func dispatchPull(ctx context.Context, app *commands.App, branch string, issue *model.Issue) (model.PhaseResult, error) {
	if err := app.Adapter.Pull(ctx); err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to pull: %w", err)
	}
	return done(branch, issue, nil, "pulled latest from upstream"), nil
}

func dispatchPush(ctx context.Context, app *commands.App, branch string, issue *model.Issue) (model.PhaseResult, error) {
	if err := app.Adapter.Push(ctx, branch, true); err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to push: %w", err)
	}
	return done(branch, issue, nil, "pushed to upstream"), nil
}

func dispatchSync(ctx context.Context, app *commands.App, prompter Prompter, branch string, issue *model.Issue) (model.PhaseResult, error) {
	options := []string{"rebase onto upstream", "merge upstream", "cancel"}
	choice, ok := prompter.Select("branch has diverged from upstream; how should it sync?", options)
	if !ok || choice == 2 {
		return aborted("USER_CANCELLED", "sync was cancelled"), nil
	}

	if err := app.Adapter.Fetch(ctx); err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to fetch: %w", err)
	}

	upstream := "origin/" + branch
	var syncErr error
	if choice == 0 {
		syncErr = app.Adapter.Rebase(ctx, upstream)
	} else {
		syncErr = app.Adapter.Merge(ctx, upstream)
	}
	if syncErr != nil {
		if _, recErr := app.BackupStore.CreateIncremental(ctx, "continue-sync", ""); recErr != nil {
			app.Logger.Warn("continue: pre-conflict backup failed", "error", recErr)
		}
		var gitErr *gitexec.Error
		if errors.As(syncErr, &gitErr) && gitErr.Tag == gitexec.TagMergeConflict {
			return model.PhaseResult{
				Status: model.PhaseFailed,
				Reason: "MERGE_CONFLICT",
				Messages: []string{
					"the sync hit a merge conflict",
					"resolve the conflicted files, then `git add` them",
					"run `git rebase --continue` (or `git merge --continue`), or abort with `--abort`",
				},
				RequiresManualAction: true,
			}, nil
		}
		return model.PhaseResult{}, fmt.Errorf("continue: sync failed: %w", syncErr)
	}
	return done(branch, issue, nil, "branch synced with upstream"), nil
}

func dispatchTest(ctx context.Context, app *commands.App, branch string, issue *model.Issue) (model.PhaseResult, error) {
	runner, ok := commands.DetectTestRunner(app.RepoRoot)
	if !ok {
		return aborted("NO_TEST_RUNNER", "no recognized test runner was found in this repository"), nil
	}
	if err := runner.Run(ctx, app.RepoRoot); err != nil {
		return model.PhaseResult{
			Status:   model.PhaseFailed,
			Reason:   "TESTS_FAILED",
			Messages: []string{fmt.Sprintf("the %s test suite failed: %v", runner.Kind, err)},
		}, nil
	}
	return done(branch, issue, nil, fmt.Sprintf("%s test suite passed", runner.Kind)), nil
}

func dispatchUpdateIssue(ctx context.Context, app *commands.App, prompter Prompter, branch string, issue *model.Issue) (model.PhaseResult, error) {
	if issue == nil || !app.Gateway.Available() {
		return aborted("NO_ISSUE_CONTEXT", "this branch has no associated issue, or GitHub is unavailable"), nil
	}
	comment, ok := prompter.Input("status update to post on issue #" + fmt.Sprint(issue.Number) + ":")
	if !ok || comment == "" {
		return aborted("USER_CANCELLED", "status update was not provided"), nil
	}
	if err := app.Gateway.CommentIssue(ctx, issue.Number, comment); err != nil {
		return model.PhaseResult{}, fmt.Errorf("continue: failed to post issue comment: %w", err)
	}
	return done(branch, issue, nil, "posted status update to issue"), nil
}
