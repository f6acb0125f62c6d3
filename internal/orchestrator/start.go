package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/flowteam/flowctl/internal/branchplan"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/model"
	"github.com/flowteam/flowctl/internal/worklog"
)

// RunStart drives the Start phase:
// Idle → CheckRepo → CheckClean → ChooseWorkType → ChooseIssue →
// BuildBranchPlan → ScanConflicts → CreateBranch → NotifyTeam → Done.
func RunStart(ctx context.Context, app *commands.App, prompter Prompter) (model.PhaseResult, error) {
	if !app.Adapter.IsRepository(ctx) {
		return aborted("NOT_A_REPOSITORY", "the current directory is not a Git repository"), nil
	}

	status, err := app.Adapter.Status(ctx)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("start: failed to read repository status: %w", err)
	}

	if status.Dirty() {
		if !prompter.Confirm("the working tree has uncommitted changes; stash them before starting new work?") {
			return aborted("DIRTY_TREE", "the working tree has uncommitted changes"), nil
		}
		if err := app.Adapter.StashPush(ctx, "teamflow: auto-stash before start"); err != nil {
			return model.PhaseResult{}, fmt.Errorf("start: failed to stash changes: %w", err)
		}
	}

	names := make([]string, len(model.WorkTypes))
	for i, info := range model.WorkTypes {
		names[i] = fmt.Sprintf("%s — %s", info.DisplayName, info.Help)
	}
	choice, ok := prompter.Select("what kind of work is this?", names)
	if !ok {
		return aborted("USER_CANCELLED", "work type selection was cancelled"), nil
	}
	workType := model.WorkTypes[choice].Type

	issueNumber := 0
	if raw, ok := prompter.Input("associated issue number (blank for none):"); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return aborted("INVALID_ISSUE_NUMBER", fmt.Sprintf("%q is not a valid issue number", raw)), nil
		}
		issueNumber = n
	}

	var issue *model.Issue
	if issueNumber > 0 && app.Gateway.Available() {
		got, err := app.Gateway.GetIssue(ctx, issueNumber)
		if err != nil {
			if !prompter.Confirm(fmt.Sprintf("could not fetch issue #%d (%v); continue without it?", issueNumber, err)) {
				return aborted("ISSUE_FETCH_FAILED", fmt.Sprintf("issue #%d could not be fetched", issueNumber)), nil
			}
		} else {
			issue = &got
		}
	}

	title, ok := prompter.Input("short description for the branch name:")
	if !ok || title == "" {
		return aborted("USER_CANCELLED", "branch description was not provided"), nil
	}

	if issueNumber == 0 && app.Gateway.Available() {
		if prompter.Confirm("create a GitHub issue to track this work?") {
			created, err := app.Gateway.CreateIssue(ctx, title, "", []string{string(workType)})
			if err != nil {
				app.Logger.Warn("start: issue creation failed", "error", err)
			} else {
				issue = &created
				issueNumber = created.Number
			}
		}
	}

	plan, err := branchplan.Derive(workType, issueNumber, title)
	if err != nil {
		return aborted("INVALID_BRANCH_NAME", err.Error()), nil
	}

	defaultBranch := app.Config.DefaultBranch
	currentBranch, err := app.Adapter.CurrentBranch(ctx)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("start: failed to read current branch: %w", err)
	}
	if currentBranch != defaultBranch {
		if !prompter.Confirm(fmt.Sprintf("you are on %q, not the default branch %q; branch from here anyway?", currentBranch, defaultBranch)) {
			return aborted("NOT_ON_DEFAULT_BRANCH", fmt.Sprintf("refused to branch from %q", currentBranch)), nil
		}
	}

	if exists, err := app.Adapter.BranchExists(ctx, plan.FullName); err != nil {
		return model.PhaseResult{}, fmt.Errorf("start: failed to check for an existing branch: %w", err)
	} else if exists {
		if !prompter.Confirm(fmt.Sprintf("branch %q already exists locally; switch to it?", plan.FullName)) {
			return aborted("BRANCH_EXISTS_DECLINED", fmt.Sprintf("branch %q already exists", plan.FullName)), nil
		}
		if err := app.Adapter.Switch(ctx, plan.FullName); err != nil {
			return model.PhaseResult{}, fmt.Errorf("start: failed to switch to existing branch %q: %w", plan.FullName, err)
		}
		return done(plan.FullName, issue, nil, "switched to existing branch"), nil
	}

	if plan.IssueNumber > 0 {
		remoteBranches, err := app.Adapter.RemoteBranches(ctx)
		if err == nil {
			for _, rb := range remoteBranches {
				if n, ok := branchplan.IssueNumberFromBranch(rb); ok && n == plan.IssueNumber {
					if !prompter.Confirm(fmt.Sprintf("a remote branch %q already covers issue #%d; continue anyway?", rb, n)) {
						return aborted("REMOTE_BRANCH_CONFLICT", fmt.Sprintf("remote branch %q already tracks issue #%d", rb, n)), nil
					}
					break
				}
			}
		}
	}

	if _, err := app.BackupStore.CreateIncremental(ctx, "start", ""); err != nil {
		app.Logger.Warn("start: pre-branch backup failed", "error", err)
	}

	if err := app.Adapter.CreateAndSwitch(ctx, plan.FullName, currentBranch); err != nil {
		return model.PhaseResult{}, fmt.Errorf("start: failed to create branch %q: %w", plan.FullName, err)
	}

	if log, err := worklog.Load(app.WorkLogPath); err == nil {
		log.Track(plan.FullName, workType, plan.IssueNumber, time.Now())
		if err := worklog.Save(app.WorkLogPath, log); err != nil {
			app.Logger.Warn("start: failed to update work log", "error", err)
		}
	}

	msg := fmt.Sprintf("Started %s on branch %s", model.WorkTypes[choice].DisplayName, plan.FullName)
	if err := app.Notifier.Send(ctx, notifyMessage(msg, "")); err != nil {
		app.Logger.Warn("start: team notification failed", "error", err)
	}

	return done(plan.FullName, issue, nil, "branch created"), nil
}
