package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowteam/flowctl/internal/branchplan"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/model"
	"github.com/flowteam/flowctl/internal/worklog"
)

// RunFinish drives the Finish phase: CheckOnNonDefault →
// ReviewChangedFiles → SelectFilesToStage → ComposeCommitMessage →
// Commit → (optionally) RunTests → Push → (optionally) OpenPullRequest
// → (optionally) NotifyTeam → Done.
func RunFinish(ctx context.Context, app *commands.App, prompter Prompter) (model.PhaseResult, error) {
	if !app.Adapter.IsRepository(ctx) {
		return aborted("NOT_A_REPOSITORY", "the current directory is not a Git repository"), nil
	}

	branch, err := app.Adapter.CurrentBranch(ctx)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("finish: failed to read current branch: %w", err)
	}
	if branch == app.Config.DefaultBranch || branch == "main" || branch == "master" {
		return aborted("ON_DEFAULT_BRANCH", fmt.Sprintf("refusing to finish from the default branch %q", branch)), nil
	}

	changed, err := app.Adapter.ChangedFiles(ctx)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("finish: failed to read changed files: %w", err)
	}

	if len(changed) > 0 {
		names := make([]string, len(changed))
		for i, f := range changed {
			names[i] = fmt.Sprintf("%s (%s)", f.Path, f.Status)
		}

		var toStage []string
		if prompter.Confirm(fmt.Sprintf("stage all %d changed file(s): %s?", len(changed), strings.Join(names, ", "))) {
			toStage = []string{"."}
		} else {
			for _, f := range changed {
				if prompter.Confirm(fmt.Sprintf("stage %s (%s)?", f.Path, f.Status)) {
					toStage = append(toStage, f.Path)
				}
			}
			if len(toStage) == 0 {
				return aborted("USER_CANCELLED", "no files were selected to stage"), nil
			}
		}

		message, ok := composeCommitMessage(prompter)
		if !ok {
			return aborted("INVALID_COMMIT_MESSAGE", "commit message was empty, cancelled, or malformed"), nil
		}
		if err := app.Adapter.Stage(ctx, toStage...); err != nil {
			return model.PhaseResult{}, fmt.Errorf("finish: failed to stage changes: %w", err)
		}
		if err := app.Adapter.Commit(ctx, message); err != nil {
			return model.PhaseResult{}, fmt.Errorf("finish: failed to commit: %w", err)
		}
	}

	if runner, ok := commands.DetectTestRunner(app.RepoRoot); ok {
		if prompter.Confirm(fmt.Sprintf("run the detected %s test suite before pushing?", runner.Kind)) {
			if err := runner.Run(ctx, app.RepoRoot); err != nil {
				if !prompter.Confirm(fmt.Sprintf("the %s test suite failed (%v); push anyway?", runner.Kind, err)) {
					return aborted("TESTS_FAILED", "tests did not pass"), nil
				}
			}
		}
	}

	if _, err := app.BackupStore.CreateIncremental(ctx, "finish", ""); err != nil {
		app.Logger.Warn("finish: pre-push backup failed", "error", err)
	}

	if err := app.Adapter.Push(ctx, branch, true); err != nil {
		return model.PhaseResult{}, fmt.Errorf("finish: failed to push: %w", err)
	}

	var pr *model.PullRequest
	if app.Gateway.Available() && prompter.Confirm("open a pull request for this branch?") {
		title, ok := prompter.Input("pull request title:")
		if !ok || title == "" {
			title = branch
		}
		description, _ := prompter.Input("pull request description (optional):")
		body := buildPRBody(branch, description)
		draft := prompter.Confirm("open as a draft?")
		created, err := app.Gateway.CreatePR(ctx, title, body, branch, app.Config.DefaultBranch, draft)
		if err != nil {
			return model.PhaseResult{}, fmt.Errorf("finish: failed to open pull request: %w", err)
		}
		pr = &created
	}

	if log, logErr := worklog.Load(app.WorkLogPath); logErr == nil {
		prNumber := 0
		if pr != nil {
			prNumber = pr.Number
		}
		if log.MarkFinished(branch, prNumber, time.Now()) {
			if err := worklog.Save(app.WorkLogPath, log); err != nil {
				app.Logger.Warn("finish: failed to update work log", "error", err)
			}
		}
	}

	if prompter.Confirm("notify the team that this branch is ready for review?") {
		msg := fmt.Sprintf("%s is ready for review", branch)
		url := ""
		if pr != nil {
			url = pr.URL
		}
		if err := app.Notifier.Send(ctx, notifyMessage(msg, url)); err != nil {
			app.Logger.Warn("finish: team notification failed", "error", err)
		}
	}

	return done(branch, nil, pr, "finished"), nil
}

// buildPRBody assembles the pull request body: the operator's
// description plus, when the branch name encodes an issue number, a
// "Closes #<N>" line so merging the PR closes the issue.
func buildPRBody(branch, description string) string {
	body := description
	if n, ok := branchplan.IssueNumberFromBranch(branch); ok {
		closes := "Closes #" + strconv.Itoa(n)
		if body == "" {
			body = closes
		} else {
			body = body + "\n\n" + closes
		}
	}
	return body
}
