// Package branchplan derives BranchPlan values from a work type, an
// optional issue number, and a free-text title:
// full_name == "<prefix><issue-prefix><slug>", slug is lower-case
// alphanumerics plus dash, capped at 30 characters.
package branchplan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flowteam/flowctl/internal/model"
	"github.com/flowteam/flowctl/internal/validate"
)

const maxSlugLength = 30

var (
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
	trimDashes  = regexp.MustCompile(`^-+|-+$`)
)

// Slugify converts free text into a lower-case, dash-separated slug
// capped at maxSlugLength characters. Non-ASCII input (e.g. Japanese
// titles) folds to its transliterable ASCII subset; runs that carry no
// ASCII letters or digits (e.g. an all-Japanese title) fall back to a
// generic "work" stem so the slug is never empty.
func Slugify(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteByte('-')
		}
	}

	slug := nonAlnumRun.ReplaceAllString(b.String(), "-")
	slug = trimDashes.ReplaceAllString(slug, "")

	if slug == "" {
		slug = "work"
	}
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// Derive builds a BranchPlan for a unit of work. issueNumber of 0
// means no associated issue.
func Derive(workType model.WorkType, issueNumber int, title string) (model.BranchPlan, error) {
	info, found := model.LookupWorkType(workType)
	if !found {
		return model.BranchPlan{}, fmt.Errorf("unknown work type %q", workType)
	}

	slug := Slugify(title)

	var fullName string
	if issueNumber > 0 {
		fullName = fmt.Sprintf("%sissue-%d-%s", info.Prefix, issueNumber, slug)
	} else {
		fullName = info.Prefix + slug
	}

	result := validate.BranchName(fullName)
	if !result.Valid {
		return model.BranchPlan{}, fmt.Errorf("derived branch name %q is invalid: %s", fullName, result.Err)
	}

	return model.BranchPlan{
		WorkType:    workType,
		IssueNumber: issueNumber,
		Slug:        slug,
		FullName:    result.Value,
	}, nil
}

var issueBranchPattern = regexp.MustCompile(`issue-(\d+)-`)

// IssueNumberFromBranch extracts the issue number encoded in a branch
// name of the form ".../issue-<N>-...". ok is false if no issue is
// encoded.
func IssueNumberFromBranch(branch string) (int, bool) {
	matches := issueBranchPattern.FindStringSubmatch(branch)
	if matches == nil {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(matches[1], "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}
