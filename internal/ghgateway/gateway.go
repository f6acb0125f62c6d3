// Package ghgateway implements the rate-limited GitHub API gateway:
// a thin wrapper over google/go-github (one typed method per
// operation, pagination loops) with offline-mode fast-fail checked
// once at construction, a FIFO single-flight dispatch path enforcing a
// minimum inter-request interval via golang.org/x/time/rate,
// RateLimitState tracking from response headers, and a fixed
// HTTP-status-to-tag failure mapping.
package ghgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/flowteam/flowctl/internal/model"
)

// MinInterval is the default minimum spacing between outbound calls.
const MinInterval = 100 * time.Millisecond

var remoteURLPattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+?)(\.git)?$`)

// FailureTag classifies a gateway failure.
type FailureTag string

const (
	FailureUnauthorized     FailureTag = "UNAUTHORIZED"
	FailureRateLimit        FailureTag = "RATE_LIMIT"
	FailureForbidden        FailureTag = "FORBIDDEN"
	FailureNotFound         FailureTag = "NOT_FOUND"
	FailureValidation       FailureTag = "VALIDATION_ERROR"
	FailureTimeout          FailureTag = "TIMEOUT"
	FailureNotAvailable     FailureTag = "NOT_AVAILABLE"
)

// APIError carries a failure tag and a human remediation string.
type APIError struct {
	Tag         FailureTag
	Remediation string
	Err         error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Tag, e.Err)
	}
	return string(e.Tag)
}

func (e *APIError) Unwrap() error { return e.Err }

// Gateway is the rate-limited GitHub API client.
type Gateway struct {
	client *github.Client

	dispatchMu sync.Mutex // serializes dispatch into FIFO order
	stateMu    sync.Mutex // protects rateState
	limiter    *rate.Limiter
	rateState  model.RateLimitState

	owner      string
	repo       string
	username   string
	permission string

	available         bool
	unavailableReason string
	offline           bool
}

// offlineMarker mirrors state/offline-mode.json.
type offlineMarker struct {
	Offline bool   `json:"offline"`
	Reason  string `json:"reason"`
}

// New runs the gateway initialization sequence: it authenticates the
// token, captures the user identity, derives owner/repo from
// remoteURL, and probes repository access. If
// offlineStatePath names an existing offline-mode marker, or any step
// of the sequence fails, the Gateway is constructed in the
// "unavailable" state: every operation then returns a NotAvailable
// APIError with a remediation string, without making further network
// calls.
func New(ctx context.Context, token, remoteURL, offlineStatePath string) *Gateway {
	gw := &Gateway{
		limiter: rate.NewLimiter(rate.Every(MinInterval), 1),
	}

	if marker, err := readOfflineMarker(offlineStatePath); err == nil && marker.Offline {
		gw.offline = true
		gw.unavailableReason = fmt.Sprintf("offline mode is active (%s); delete %s to resume network access", marker.Reason, offlineStatePath)
		return gw
	}

	if token == "" {
		gw.unavailableReason = "GITHUB_TOKEN is not set; run with --setup or export GITHUB_TOKEN"
		return gw
	}

	owner, repo, ok := parseOwnerRepo(remoteURL)
	if !ok {
		gw.unavailableReason = fmt.Sprintf("could not derive owner/repo from remote URL %q; check 'git remote get-url origin'", remoteURL)
		return gw
	}
	gw.owner, gw.repo = owner, repo

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	gw.client = github.NewClient(tc)

	user, _, err := gw.client.Users.Get(ctx, "")
	if err != nil {
		gw.unavailableReason = fmt.Sprintf("authentication failed: %v; verify GITHUB_TOKEN is valid and not expired", err)
		return gw
	}
	gw.username = user.GetLogin()

	if _, _, err := gw.client.Repositories.Get(ctx, owner, repo); err != nil {
		gw.unavailableReason = fmt.Sprintf("cannot access repository %s/%s: %v; verify the token has access", owner, repo, err)
		return gw
	}

	perm, _, err := gw.client.Repositories.GetPermissionLevel(ctx, owner, repo, gw.username)
	if err != nil {
		gw.unavailableReason = fmt.Sprintf("cannot determine collaborator permission on %s/%s: %v; verify the token's repository access", owner, repo, err)
		return gw
	}
	gw.permission = perm.GetPermission()

	gw.available = true
	return gw
}

func readOfflineMarker(path string) (offlineMarker, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the tool's own state directory
	if err != nil {
		return offlineMarker{}, err
	}
	var marker offlineMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return offlineMarker{}, fmt.Errorf("failed to parse offline marker: %w", err)
	}
	return marker, nil
}

func parseOwnerRepo(remoteURL string) (owner, repo string, ok bool) {
	matches := remoteURLPattern.FindStringSubmatch(remoteURL)
	if matches == nil {
		return "", "", false
	}
	return matches[1], matches[2], true
}

// Available reports whether the gateway completed initialization
// successfully and is not in offline mode.
func (g *Gateway) Available() bool { return g.available && !g.offline }

// Username returns the authenticated user's login.
func (g *Gateway) Username() string { return g.username }

// Permission returns the authenticated user's collaborator permission
// on the repository, as probed at construction.
func (g *Gateway) Permission() string { return g.permission }

// CanWrite reports whether the probed collaborator permission allows
// mutating operations.
func (g *Gateway) CanWrite() bool {
	switch g.permission {
	case "admin", "write", "maintain":
		return true
	}
	return false
}

// OwnerRepo returns the derived repository coordinates.
func (g *Gateway) OwnerRepo() (string, string) { return g.owner, g.repo }

// RateLimitState returns a read-only snapshot of the current window.
func (g *Gateway) RateLimitState() model.RateLimitState {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.rateState
}

func (g *Gateway) notAvailableErr() error {
	return &APIError{Tag: FailureNotAvailable, Remediation: g.unavailableReason}
}

// requireWrite fails fast before a mutating operation when the
// gateway is unavailable or the token's collaborator permission is
// read-only, instead of letting the API reject the write mid-phase.
func (g *Gateway) requireWrite() error {
	if !g.Available() {
		return g.notAvailableErr()
	}
	if !g.CanWrite() {
		return &APIError{
			Tag:         FailureForbidden,
			Remediation: fmt.Sprintf("the token's %q permission on %s/%s does not allow writes; ask a repository admin for write access", g.permission, g.owner, g.repo),
		}
	}
	return nil
}

// gate serializes dispatch: it waits out the minimum inter-request
// interval and, if the last-seen window is exhausted, sleeps until
// reset+1s, before the caller performs its single outbound call. This
// single mutex-guarded critical section is this single-process
// gateway's FIFO queue: holding the mutex across the whole call (see
// do) keeps cross-call ordering identical to enqueue order without a
// separate queue data structure.
func (g *Gateway) gate(ctx context.Context) error {
	g.stateMu.Lock()
	state := g.rateState
	g.stateMu.Unlock()

	if state.Remaining == 0 && !state.ResetAt.IsZero() {
		if err := g.sleepUntil(ctx, state.ResetAt.Add(time.Second)); err != nil {
			return err
		}
	}

	return g.limiter.Wait(ctx)
}

func (g *Gateway) sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) recordRate(resp *github.Response) {
	if resp == nil {
		return
	}
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	g.rateState = model.RateLimitState{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		ResetAt:   resp.Rate.Reset.Time,
		Used:      resp.Rate.Limit - resp.Rate.Remaining,
	}
}

// do runs a single gateway operation under the serialization gate,
// with one re-queue-at-head retry on a rate-limit 403.
// Holding dispatchMu for the full call (gate + request + optional
// retry) is what gives the gateway its FIFO-ordering guarantee: a
// second caller's gate-and-dispatch cannot interleave with this one's.
func (g *Gateway) do(ctx context.Context, op func(context.Context) (*github.Response, error)) error {
	if !g.Available() {
		return g.notAvailableErr()
	}

	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()

	if err := g.gate(ctx); err != nil {
		return err
	}

	resp, err := op(ctx)
	g.recordRate(resp)
	if err == nil {
		return nil
	}

	tagged := classifyError(resp, err)
	if tagged.Tag == FailureRateLimit {
		g.stateMu.Lock()
		resetAt := g.rateState.ResetAt
		g.stateMu.Unlock()
		if err := g.sleepUntil(ctx, resetAt.Add(time.Second)); err != nil {
			return err
		}
		resp2, err2 := op(ctx)
		g.recordRate(resp2)
		if err2 == nil {
			return nil
		}
		return classifyError(resp2, err2)
	}

	return tagged
}

func classifyError(resp *github.Response, err error) *APIError {
	if err == nil {
		return nil
	}

	var status int
	if resp != nil && resp.Response != nil {
		status = resp.Response.StatusCode
	}

	msg := err.Error()

	switch status {
	case 401:
		return &APIError{Tag: FailureUnauthorized, Remediation: "the GitHub token is invalid or expired; re-run --setup to supply a new token", Err: err}
	case 403:
		if isRateLimitError(err) {
			return &APIError{Tag: FailureRateLimit, Err: err}
		}
		return &APIError{Tag: FailureForbidden, Remediation: "the token lacks permission for this operation; check repository/organization access", Err: err}
	case 404:
		return &APIError{Tag: FailureNotFound, Remediation: "the repository or resource does not exist, or the token cannot see it", Err: err}
	case 422:
		if strings.Contains(msg, "No commits between") {
			return &APIError{Tag: FailureValidation, Remediation: "there are no commits between the head and base branches to open a PR for", Err: err}
		}
		if strings.Contains(msg, "already exists") {
			return &APIError{Tag: FailureValidation, Remediation: "a pull request for this head/base pair already exists", Err: err}
		}
		return &APIError{Tag: FailureValidation, Err: err}
	}

	if strings.Contains(strings.ToLower(msg), "timeout") || strings.Contains(strings.ToLower(msg), "deadline exceeded") {
		return &APIError{Tag: FailureTimeout, Err: err}
	}

	return &APIError{Tag: FailureValidation, Err: err}
}

func isRateLimitError(err error) bool {
	if _, ok := err.(*github.RateLimitError); ok {
		return true
	}
	if _, ok := err.(*github.AbuseRateLimitError); ok {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
