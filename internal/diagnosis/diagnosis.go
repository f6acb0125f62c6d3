// Package diagnosis implements the repository diagnosis module: a set
// of probe-based checks over repository and filesystem state, rolled
// up into a severity-tagged report, plus the work-status analyzer that
// turns the same signals into ranked next-action recommendations.
package diagnosis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/model"
)

// maxUntrackedFiles is the excessive-untracked-files threshold.
const maxUntrackedFiles = 10

// maxUncommittedFiles is the large-uncommitted-batch warning
// threshold.
const maxUncommittedFiles = 20

// maxFileSize is the oversized-file threshold, 100 MiB.
const maxFileSize = 100 * 1024 * 1024

// Issue is one severity-tagged finding.
type Issue struct {
	Tag      string
	Severity model.Severity
	Message  string
}

// Warning encodes a team-practice concern that never blocks a phase.
type Warning struct {
	Tag     string
	Message string
}

// Suggestion is a non-blocking next-step hint.
type Suggestion struct {
	Message string
}

// Report is the Diagnosis module's output: issues, warnings, and
// suggestions.
type Report struct {
	Issues      []Issue
	Warnings    []Warning
	Suggestions []Suggestion
}

// Diagnose inspects the repository at repoRoot (via adapter) and the
// filesystem, producing a Report. defaultBranch names the branch that
// triggers the "work on default branch" warning.
func Diagnose(ctx context.Context, adapter *gitexec.Adapter, repoRoot, defaultBranch string) (Report, error) {
	var report Report

	if !adapter.IsRepository(ctx) {
		report.Issues = append(report.Issues, Issue{
			Tag: "NOT_A_REPOSITORY", Severity: model.SeverityCritical,
			Message: "the current directory is not a Git repository",
		})
		return report, nil
	}

	status, err := adapter.Status(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read repository status: %w", err)
	}

	if len(status.Conflicted) > 0 {
		report.Issues = append(report.Issues, Issue{
			Tag: "MERGE_CONFLICT", Severity: model.SeverityCritical,
			Message: fmt.Sprintf("%d file(s) have unresolved merge conflicts", len(status.Conflicted)),
		})
	}
	if len(status.Untracked) > maxUntrackedFiles {
		report.Issues = append(report.Issues, Issue{
			Tag: "EXCESSIVE_UNTRACKED", Severity: model.SeverityWarning,
			Message: fmt.Sprintf("%d untracked files present (threshold %d)", len(status.Untracked), maxUntrackedFiles),
		})
	}
	if status.CurrentBranch == "" {
		report.Issues = append(report.Issues, Issue{
			Tag: "DETACHED_HEAD", Severity: model.SeverityWarning,
			Message: "HEAD is detached",
		})
	}
	if status.HasRemoteOrigin && !adapter.RemoteReachable(ctx) {
		report.Issues = append(report.Issues, Issue{
			Tag: "REMOTE_UNREACHABLE", Severity: model.SeverityRecoverable,
			Message: "the configured remote did not respond",
		})
	}
	if !probeWritable(repoRoot) {
		report.Issues = append(report.Issues, Issue{
			Tag: "WORKING_DIR_UNWRITABLE", Severity: model.SeverityCritical,
			Message: "the working directory is not writable",
		})
	}
	if name, email := adapter.UserIdentity(ctx); name == "" || email == "" {
		report.Issues = append(report.Issues, Issue{
			Tag: "GIT_IDENTITY_MISSING", Severity: model.SeverityWarning,
			Message: "git user.name or user.email is not configured",
		})
	}
	for _, oversized := range findOversizedFiles(repoRoot, status) {
		report.Issues = append(report.Issues, Issue{
			Tag: "FILE_TOO_LARGE", Severity: model.SeverityWarning,
			Message: fmt.Sprintf("%s exceeds 100 MiB", oversized),
		})
	}

	if status.CurrentBranch != "" && status.CurrentBranch == defaultBranch {
		report.Warnings = append(report.Warnings, Warning{
			Tag: "ON_DEFAULT_BRANCH", Message: "work is happening directly on the default branch",
		})
	}
	uncommitted := len(status.Staged) + len(status.Modified) + len(status.Untracked)
	if uncommitted > maxUncommittedFiles {
		report.Warnings = append(report.Warnings, Warning{
			Tag: "LARGE_UNCOMMITTED_BATCH",
			Message: fmt.Sprintf("%d uncommitted files (threshold %d)", uncommitted, maxUncommittedFiles),
		})
	}
	if status.Ahead > 0 {
		report.Warnings = append(report.Warnings, Warning{
			Tag: "UNPUSHED_COMMITS", Message: fmt.Sprintf("%d commit(s) not pushed to the remote", status.Ahead),
		})
	}

	if len(report.Issues) == 0 && len(report.Warnings) == 0 {
		report.Suggestions = append(report.Suggestions, Suggestion{Message: "repository state looks healthy"})
	}

	return report, nil
}

func probeWritable(repoRoot string) bool {
	probe := filepath.Join(repoRoot, ".teamflow-write-probe")
	if err := os.WriteFile(probe, []byte{}, 0o600); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}

// findOversizedFiles checks the paths the working tree already knows
// about (staged, modified, untracked) rather than walking the whole
// tree, since the latter would defeat the point of a fast diagnosis.
func findOversizedFiles(repoRoot string, status model.GitStatus) []string {
	var oversized []string
	candidates := make([]string, 0, len(status.Staged)+len(status.Modified)+len(status.Untracked))
	candidates = append(candidates, status.Staged...)
	candidates = append(candidates, status.Modified...)
	candidates = append(candidates, status.Untracked...)
	for _, rel := range candidates {
		info, err := os.Stat(filepath.Join(repoRoot, rel))
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > maxFileSize {
			oversized = append(oversized, rel)
		}
	}
	sort.Strings(oversized)
	return oversized
}
