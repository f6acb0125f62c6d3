package ghgateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/flowteam/flowctl/internal/model"
)

// ListOpenIssues lists open issues (excluding pull requests).
func (g *Gateway) ListOpenIssues(ctx context.Context) ([]model.Issue, error) {
	var issues []model.Issue
	opts := &github.IssueListByRepoOptions{State: "open", ListOptions: github.ListOptions{PerPage: 100}}

	for {
		var page []*github.Issue
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list open issues: %w", err)
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, toModelIssue(issue))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return issues, nil
}

func toModelIssue(issue *github.Issue) model.Issue {
	labels := map[string]struct{}{}
	for _, l := range issue.Labels {
		labels[l.GetName()] = struct{}{}
	}
	assignees := map[string]struct{}{}
	for _, a := range issue.Assignees {
		assignees[a.GetLogin()] = struct{}{}
	}
	state := model.IssueOpen
	if issue.GetState() == "closed" {
		state = model.IssueClosed
	}
	return model.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		Labels:    labels,
		Assignees: assignees,
		State:     state,
		UpdatedAt: issue.GetUpdatedAt().Time,
		URL:       issue.GetHTMLURL(),
	}
}

// CreateIssue creates a new issue.
func (g *Gateway) CreateIssue(ctx context.Context, title, body string, labels []string) (model.Issue, error) {
	if err := g.requireWrite(); err != nil {
		return model.Issue{}, fmt.Errorf("failed to create issue: %w", err)
	}

	var created *github.Issue
	req := &github.IssueRequest{Title: &title, Body: &body, Labels: &labels}
	err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
		issue, resp, err := g.client.Issues.Create(ctx, g.owner, g.repo, req)
		created = issue
		return resp, err
	})
	if err != nil {
		return model.Issue{}, fmt.Errorf("failed to create issue: %w", err)
	}
	return toModelIssue(created), nil
}

// GetIssue fetches a single issue by number.
func (g *Gateway) GetIssue(ctx context.Context, number int) (model.Issue, error) {
	var found *github.Issue
	err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
		issue, resp, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
		found = issue
		return resp, err
	})
	if err != nil {
		return model.Issue{}, fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}
	return toModelIssue(found), nil
}

// CommentIssue posts a comment on an issue or PR.
func (g *Gateway) CommentIssue(ctx context.Context, number int, body string) error {
	if err := g.requireWrite(); err != nil {
		return fmt.Errorf("failed to comment on issue #%d: %w", number, err)
	}

	comment := &github.IssueComment{Body: &body}
	err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
		_, resp, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, number, comment)
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("failed to comment on issue #%d: %w", number, err)
	}
	return nil
}

// ListOpenPRs lists open pull requests.
func (g *Gateway) ListOpenPRs(ctx context.Context) ([]model.PullRequest, error) {
	var all []model.PullRequest
	opts := &github.PullRequestListOptions{State: "open", ListOptions: github.ListOptions{PerPage: 100}}

	for {
		var page []*github.PullRequest
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.PullRequests.List(ctx, g.owner, g.repo, opts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list open pull requests: %w", err)
		}
		for _, pr := range page {
			all = append(all, toModelPR(pr))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListOpenPRsWithReviews lists open PRs along with their review state.
func (g *Gateway) ListOpenPRsWithReviews(ctx context.Context) ([]model.PullRequest, error) {
	prs, err := g.ListOpenPRs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range prs {
		reviews, err := g.listReviews(ctx, prs[i].Number)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reviews for PR #%d: %w", prs[i].Number, err)
		}
		prs[i].Reviews = reviews
	}
	return prs, nil
}

func (g *Gateway) listReviews(ctx context.Context, number int) ([]model.Review, error) {
	var page []*github.PullRequestReview
	err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
		result, resp, err := g.client.PullRequests.ListReviews(ctx, g.owner, g.repo, number, &github.ListOptions{PerPage: 100})
		page = result
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	reviews := make([]model.Review, 0, len(page))
	for _, r := range page {
		reviews = append(reviews, model.Review{
			User:        r.GetUser().GetLogin(),
			State:       model.ReviewState(r.GetState()),
			SubmittedAt: r.GetSubmittedAt().Time,
		})
	}
	return reviews, nil
}

func toModelPR(pr *github.PullRequest) model.PullRequest {
	reviewers := map[string]struct{}{}
	for _, r := range pr.RequestedReviewers {
		reviewers[r.GetLogin()] = struct{}{}
	}
	var merged *time.Time
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		merged = &t
	}
	return model.PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		HeadRef:   pr.GetHead().GetRef(),
		BaseRef:   pr.GetBase().GetRef(),
		State:     pr.GetState(),
		Draft:     pr.GetDraft(),
		Reviewers: reviewers,
		CreatedAt: pr.GetCreatedAt().Time,
		MergedAt:  merged,
		URL:       pr.GetHTMLURL(),
	}
}

// CreatePR opens a new pull request.
func (g *Gateway) CreatePR(ctx context.Context, title, body, head, base string, draft bool) (model.PullRequest, error) {
	if err := g.requireWrite(); err != nil {
		return model.PullRequest{}, fmt.Errorf("failed to create pull request: %w", err)
	}

	var created *github.PullRequest
	req := &github.NewPullRequest{Title: &title, Body: &body, Head: &head, Base: &base, Draft: &draft}
	err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
		pr, resp, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, req)
		created = pr
		return resp, err
	})
	if err != nil {
		return model.PullRequest{}, fmt.Errorf("failed to create pull request: %w", err)
	}
	return toModelPR(created), nil
}

// ListBranches lists every branch in the repository.
func (g *Gateway) ListBranches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		var page []*github.Branch
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.Repositories.ListBranches(ctx, g.owner, g.repo, opts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}
		for _, b := range page {
			names = append(names, b.GetName())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// ListContributors lists repository contributors for reviewer
// suggestion, excluding the authenticated user and any name in
// exclude.
func (g *Gateway) ListContributors(ctx context.Context, exclude []string) ([]string, error) {
	excluded := map[string]struct{}{g.username: {}}
	for _, e := range exclude {
		excluded[e] = struct{}{}
	}

	var names []string
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		var page []*github.Contributor
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.Repositories.ListContributors(ctx, g.owner, g.repo, opts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list contributors: %w", err)
		}
		for _, c := range page {
			login := c.GetLogin()
			if _, skip := excluded[login]; skip {
				continue
			}
			names = append(names, login)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// GetCommitsSince returns commits on branch newer than since.
func (g *Gateway) GetCommitsSince(ctx context.Context, branch string, since time.Time) ([]string, error) {
	var messages []string
	opts := &github.CommitsListOptions{SHA: branch, Since: since, ListOptions: github.ListOptions{PerPage: 100}}
	for {
		var page []*github.RepositoryCommit
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.Repositories.ListCommits(ctx, g.owner, g.repo, opts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list commits since %s: %w", since.Format(time.RFC3339), err)
		}
		for _, c := range page {
			messages = append(messages, c.GetCommit().GetMessage())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return messages, nil
}

// RepoMetrics is the 7-day window computed for the Team phase.
type RepoMetrics struct {
	Commits          int
	PRsCreated       int
	PRsMerged        int
	MeanReviewTime   time.Duration
}

// GetRepoMetricsWindow computes commit/PR/review metrics over the
// trailing window ending now.
func (g *Gateway) GetRepoMetricsWindow(ctx context.Context, window time.Duration) (RepoMetrics, error) {
	since := time.Now().Add(-window)
	var metrics RepoMetrics

	opts := &github.PullRequestListOptions{State: "all", ListOptions: github.ListOptions{PerPage: 100}}
	var reviewDurations []time.Duration

	for {
		var page []*github.PullRequest
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.PullRequests.List(ctx, g.owner, g.repo, opts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return metrics, fmt.Errorf("failed to list pull requests for metrics: %w", err)
		}

		for _, pr := range page {
			created := pr.GetCreatedAt().Time
			if created.Before(since) {
				continue
			}
			metrics.PRsCreated++
			if pr.MergedAt != nil {
				merged := pr.GetMergedAt().Time
				metrics.PRsMerged++
				reviewDurations = append(reviewDurations, merged.Sub(created))
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	commitOpts := &github.CommitsListOptions{Since: since, ListOptions: github.ListOptions{PerPage: 100}}
	for {
		var page []*github.RepositoryCommit
		var resp *github.Response
		err := g.do(ctx, func(ctx context.Context) (*github.Response, error) {
			result, r, err := g.client.Repositories.ListCommits(ctx, g.owner, g.repo, commitOpts)
			page, resp = result, r
			return r, err
		})
		if err != nil {
			return metrics, fmt.Errorf("failed to list commits for metrics: %w", err)
		}
		metrics.Commits += len(page)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		commitOpts.Page = resp.NextPage
	}

	if len(reviewDurations) > 0 {
		var total time.Duration
		for _, d := range reviewDurations {
			total += d
		}
		metrics.MeanReviewTime = total / time.Duration(len(reviewDurations))
	}

	return metrics, nil
}
