// Package team implements the team command: a single rendered report
// of branch activity, open PR review state, potential file conflicts,
// and trailing 7-day metrics.
package team

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/model"
	"github.com/flowteam/flowctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewTeamCmd creates and returns the team command.
func NewTeamCmd() *cobra.Command {
	builder := &commands.CommandBuilder{
		Use:   "team",
		Short: "Show what the team is working on",
		Long:  "Lists active branches, open pull requests with review state, potential file conflicts between branches, and 7-day activity metrics.",
	}
	return builder.Build(func(cobraCmd *cobra.Command, _ []string) error {
		return run(cobraCmd)
	})
}

func run(cobraCmd *cobra.Command) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	app, err := commands.NewApp(cobraCmd.Context(), repoRoot, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer app.Handler.Shutdown()

	ctx, stop := app.Handler.InstallSignalHandling(cobraCmd.Context())
	defer stop()

	report, err := orchestrator.RunTeam(ctx, app)
	if err != nil {
		app.Handler.Handle(ctx, "", err)
		return err
	}

	Render(os.Stdout, report)
	return nil
}

// Render writes the team report to w.
func Render(w io.Writer, report orchestrator.TeamReport) {
	fmt.Fprintf(w, "Active branches (%d):\n", len(report.Branches))
	for _, b := range report.Branches {
		fmt.Fprintf(w, "  %-40s %s  %s\n", b.Branch, b.LastCommit.When.Format("2006-01-02 15:04"), b.LastCommit.Message)
	}
	if len(report.Branches) == 0 {
		fmt.Fprintln(w, "  (none)")
	}

	fmt.Fprintf(w, "\nOpen pull requests (%d):\n", len(report.PullRequests))
	for _, pr := range report.PullRequests {
		fmt.Fprintf(w, "  #%-5d %-40s [%s]\n", pr.Number, pr.Title, ReviewStatusLabel(pr))
	}
	if len(report.PullRequests) == 0 {
		fmt.Fprintln(w, "  (none)")
	}

	fmt.Fprintf(w, "\nPotential file conflicts (%d):\n", len(report.Conflicts))
	for _, c := range report.Conflicts {
		fmt.Fprintf(w, "  %s — touched by both %s and %s\n", c.File, c.BranchA, c.BranchB)
	}
	if len(report.Conflicts) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	if report.ConflictsSampled {
		fmt.Fprintln(w, "  (conflict scan was sampled: too many active branches for an exhaustive pass)")
	}

	fmt.Fprintln(w, "\nLast 7 days:")
	fmt.Fprintf(w, "  commits: %d  PRs created: %d  PRs merged: %d", report.Metrics.Commits, report.Metrics.PRsCreated, report.Metrics.PRsMerged)
	if report.Metrics.MeanReviewTime > 0 {
		fmt.Fprintf(w, "  mean review time: %s", report.Metrics.MeanReviewTime.Round(time.Minute))
	}
	fmt.Fprintln(w)
	if report.MetricsErr != nil {
		fmt.Fprintf(w, "  (metrics unavailable: %v)\n", report.MetricsErr)
	}
}

// ReviewStatusLabel summarizes a PR's review state for the report:
// approved, changes requested, or still waiting on a review.
func ReviewStatusLabel(pr model.PullRequest) string {
	var approved, changesRequested bool
	for _, r := range pr.Reviews {
		switch r.State {
		case model.ReviewApproved:
			approved = true
		case model.ReviewChangesRequested:
			changesRequested = true
		}
	}
	switch {
	case changesRequested:
		return "変更要求"
	case approved:
		return "承認済み"
	default:
		return "要レビュー"
	}
}
