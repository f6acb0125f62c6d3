package orchestrator

import (
	"context"
	"fmt"

	"github.com/flowteam/flowctl/internal/classify"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/diagnosis"
	"github.com/flowteam/flowctl/internal/model"
)

// diagnosisTagMap bridges diagnosis.Issue tags (which describe a
// repository state) into the classify.Tag vocabulary the Recovery
// Manager's strategy table dispatches on. Tags with no close analogue
// fall back to classify.TagUnknown, which the Recovery Manager leaves
// untouched.
var diagnosisTagMap = map[string]classify.Tag{
	"NOT_A_REPOSITORY":       classify.TagNotGitRepository,
	"MERGE_CONFLICT":         classify.TagMergeConflict,
	"REMOTE_UNREACHABLE":     classify.TagNetworkTimeout,
	"WORKING_DIR_UNWRITABLE": classify.TagPermissionDenied,
	"GIT_IDENTITY_MISSING":   classify.TagConfigurationMissing,
}

func classifyTagFor(tag string) classify.Tag {
	if t, ok := diagnosisTagMap[tag]; ok {
		return t
	}
	return classify.TagUnknown
}

// Urgency tags how the operator described the trouble they're in.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

var urgencyOptions = []string{
	"Something is broken and I need it fixed now",
	"I'm stuck and need a fix, but it's not urgent",
	"I just want to understand how this works",
}

// RunHelpFlow drives the Help-Flow phase: an urgency
// selection that routes to the emergency, fix, or learning handler.
// Destructive recovery actions always require explicit confirmation,
// regardless of urgency.
func RunHelpFlow(ctx context.Context, app *commands.App, prompter Prompter) (model.PhaseResult, error) {
	choice, ok := prompter.Select("how urgent is this?", urgencyOptions)
	if !ok {
		return aborted("USER_CANCELLED", "help-flow urgency selection was cancelled"), nil
	}

	switch choice {
	case 0:
		return runEmergencyHandler(ctx, app, prompter)
	case 1:
		return runFixHandler(ctx, app, prompter)
	default:
		return runLearningHandler(ctx, app)
	}
}

// runEmergencyHandler diagnoses the repository and, for every critical
// issue found, offers the matching recovery strategy immediately,
// each one still gated on an explicit confirmation before anything
// destructive happens.
func runEmergencyHandler(ctx context.Context, app *commands.App, prompter Prompter) (model.PhaseResult, error) {
	branch, _ := app.Adapter.CurrentBranch(ctx)
	report, err := diagnosis.Diagnose(ctx, app.Adapter, app.RepoRoot, app.Config.DefaultBranch)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("help-flow: failed to diagnose repository: %w", err)
	}

	var messages []string
	var anyDeclined bool
	for _, issue := range report.Issues {
		if issue.Severity != model.SeverityCritical && issue.Severity != model.SeverityRecoverable {
			continue
		}
		if !prompter.Confirm(fmt.Sprintf("%s: %s — attempt recovery now?", issue.Tag, issue.Message)) {
			anyDeclined = true
			messages = append(messages, fmt.Sprintf("declined recovery for %s", issue.Tag))
			continue
		}
		recovered, detail, err := app.Recovery.Recover(ctx, classifyTagFor(issue.Tag), fmt.Errorf("%s", issue.Message))
		if err != nil {
			messages = append(messages, fmt.Sprintf("%s: recovery failed: %s", issue.Tag, err))
			continue
		}
		messages = append(messages, fmt.Sprintf("%s: %s", issue.Tag, detail))
		if !recovered {
			anyDeclined = true
		}
	}

	if len(messages) == 0 {
		messages = []string{"no critical or recoverable issues were found"}
	}

	result := done(branch, nil, nil, messages[0])
	result.Messages = messages
	result.RequiresManualAction = anyDeclined
	return result, nil
}

// runFixHandler is a lighter-weight variant of the emergency handler:
// it surfaces the same diagnosis but only acts on issues the operator
// explicitly opts into, one at a time, starting from the highest
// severity.
func runFixHandler(ctx context.Context, app *commands.App, prompter Prompter) (model.PhaseResult, error) {
	branch, _ := app.Adapter.CurrentBranch(ctx)
	report, err := diagnosis.Diagnose(ctx, app.Adapter, app.RepoRoot, app.Config.DefaultBranch)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("help-flow: failed to diagnose repository: %w", err)
	}
	if len(report.Issues) == 0 {
		return done(branch, nil, nil, "no issues found"), nil
	}

	names := make([]string, len(report.Issues))
	for i, issue := range report.Issues {
		names[i] = fmt.Sprintf("%s (%s): %s", issue.Tag, issue.Severity, issue.Message)
	}
	choice, ok := prompter.Select("which issue should I try to fix?", names)
	if !ok {
		return aborted("USER_CANCELLED", "issue selection was cancelled"), nil
	}

	issue := report.Issues[choice]
	if !prompter.Confirm(fmt.Sprintf("attempt recovery for %s now?", issue.Tag)) {
		return aborted("USER_DECLINED_RECOVERY", fmt.Sprintf("declined recovery for %s", issue.Tag)), nil
	}

	recovered, detail, err := app.Recovery.Recover(ctx, classifyTagFor(issue.Tag), fmt.Errorf("%s", issue.Message))
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("help-flow: recovery failed: %w", err)
	}
	result := done(branch, nil, nil, detail)
	result.RequiresManualAction = !recovered
	return result, nil
}

// runLearningHandler never mutates anything: it runs the same
// diagnosis and returns it as a suggestions-only report.
func runLearningHandler(ctx context.Context, app *commands.App) (model.PhaseResult, error) {
	branch, _ := app.Adapter.CurrentBranch(ctx)
	report, err := diagnosis.Diagnose(ctx, app.Adapter, app.RepoRoot, app.Config.DefaultBranch)
	if err != nil {
		return model.PhaseResult{}, fmt.Errorf("help-flow: failed to diagnose repository: %w", err)
	}

	var messages []string
	for _, s := range report.Suggestions {
		messages = append(messages, s.Message)
	}
	for _, w := range report.Warnings {
		messages = append(messages, w.Message)
	}
	if len(messages) == 0 {
		messages = []string{"the repository looks healthy"}
	}

	result := done(branch, nil, nil, messages[0])
	result.Messages = messages
	return result, nil
}
