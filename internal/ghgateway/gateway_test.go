package ghgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/flowteam/flowctl/internal/model"
)

func TestParseOwnerRepo(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"ssh", "git@github.com:flowteam/api.git", "flowteam", "api", true},
		{"https with suffix", "https://github.com/flowteam/api.git", "flowteam", "api", true},
		{"https without suffix", "https://github.com/flowteam/api", "flowteam", "api", true},
		{"not github", "https://gitlab.com/flowteam/api.git", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := parseOwnerRepo(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}

func respWithStatus(status int) *github.Response {
	return &github.Response{Response: &http.Response{StatusCode: status}}
}

// rateLimitError builds a RateLimitError whose Error() method is safe
// to call (go-github formats the inner request when stringifying).
func rateLimitError() *github.RateLimitError {
	return &github.RateLimitError{
		Response: &http.Response{
			StatusCode: 403,
			Request:    &http.Request{Method: http.MethodGet, URL: &url.URL{Scheme: "https", Host: "api.github.com", Path: "/repos"}},
		},
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		tag    FailureTag
	}{
		{"401", 401, errors.New("bad credentials"), FailureUnauthorized},
		{"403 rate limit", 403, rateLimitError(), FailureRateLimit},
		{"403 forbidden", 403, errors.New("resource not accessible"), FailureForbidden},
		{"404", 404, errors.New("not found"), FailureNotFound},
		{"422 no commits", 422, errors.New("Validation Failed: No commits between main and feature/x"), FailureValidation},
		{"422 already exists", 422, errors.New("Validation Failed: A pull request already exists"), FailureValidation},
		{"timeout", 0, errors.New("net/http: request canceled (Client.Timeout exceeded)"), FailureTimeout},
		{"deadline", 0, context.DeadlineExceeded, FailureTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := classifyError(respWithStatus(tt.status), tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.tag, apiErr.Tag)
		})
	}
}

func TestClassifyErrorRemediationStrings(t *testing.T) {
	apiErr := classifyError(respWithStatus(401), errors.New("bad credentials"))
	assert.NotEmpty(t, apiErr.Remediation)

	apiErr = classifyError(respWithStatus(422), errors.New("No commits between main and feature/x"))
	assert.Contains(t, apiErr.Remediation, "no commits")
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, isRateLimitError(rateLimitError()))
	assert.True(t, isRateLimitError(&github.AbuseRateLimitError{}))
	assert.True(t, isRateLimitError(errors.New("API rate limit exceeded")))
	assert.False(t, isRateLimitError(errors.New("bad credentials")))
}

func newTestGateway() *Gateway {
	return &Gateway{
		limiter:   rate.NewLimiter(rate.Every(MinInterval), 1),
		available: true,
	}
}

func TestGateSleepsUntilResetWhenExhausted(t *testing.T) {
	g := newTestGateway()
	reset := time.Now().Add(200 * time.Millisecond)
	g.rateState = model.RateLimitState{Limit: 5000, Remaining: 0, ResetAt: reset}

	start := time.Now()
	require.NoError(t, g.gate(context.Background()))
	elapsed := time.Since(start)

	// The gate waits until reset plus one second of slack.
	assert.GreaterOrEqual(t, elapsed, 1200*time.Millisecond-50*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestGateDoesNotSleepWithRemainingQuota(t *testing.T) {
	g := newTestGateway()
	g.rateState = model.RateLimitState{Limit: 5000, Remaining: 100, ResetAt: time.Now().Add(time.Hour)}

	start := time.Now()
	require.NoError(t, g.gate(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGateEnforcesMinimumInterval(t *testing.T) {
	g := newTestGateway()
	ctx := context.Background()

	require.NoError(t, g.gate(ctx))
	start := time.Now()
	require.NoError(t, g.gate(ctx))
	assert.GreaterOrEqual(t, time.Since(start), MinInterval-10*time.Millisecond)
}

func TestGateRespectsCancellation(t *testing.T) {
	g := newTestGateway()
	g.rateState = model.RateLimitState{Remaining: 0, ResetAt: time.Now().Add(time.Hour)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.gate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoFailsFastWhenUnavailable(t *testing.T) {
	g := &Gateway{unavailableReason: "GITHUB_TOKEN is not set"}

	err := g.do(context.Background(), func(context.Context) (*github.Response, error) {
		t.Fatal("operation must not run while unavailable")
		return nil, nil
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureNotAvailable, apiErr.Tag)
	assert.Contains(t, apiErr.Remediation, "GITHUB_TOKEN")
}

func TestNewWithoutTokenIsUnavailable(t *testing.T) {
	g := New(context.Background(), "", "git@github.com:flowteam/api.git", filepath.Join(t.TempDir(), "offline.json"))
	assert.False(t, g.Available())
}

func TestNewWithOfflineMarkerStaysOffline(t *testing.T) {
	dir := t.TempDir()
	markerPath := filepath.Join(dir, "offline-mode.json")
	data, err := json.Marshal(offlineMarker{Offline: true, Reason: "connection refused"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(markerPath, data, 0o600))

	g := New(context.Background(), "ghp_sometoken", "git@github.com:flowteam/api.git", markerPath)
	assert.False(t, g.Available())

	_, listErr := g.ListOpenIssues(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, listErr, &apiErr)
	assert.Equal(t, FailureNotAvailable, apiErr.Tag)
	assert.Contains(t, apiErr.Remediation, "offline mode")
}

func TestNewWithBadRemoteURLIsUnavailable(t *testing.T) {
	g := New(context.Background(), "ghp_sometoken", "https://gitlab.com/x/y.git", filepath.Join(t.TempDir(), "offline.json"))
	assert.False(t, g.Available())

	_, err := g.ListOpenPRs(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureNotAvailable, apiErr.Tag)
}

func TestCanWrite(t *testing.T) {
	tests := []struct {
		permission string
		want       bool
	}{
		{"admin", true},
		{"write", true},
		{"maintain", true},
		{"read", false},
		{"none", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("permission "+tt.permission, func(t *testing.T) {
			g := &Gateway{permission: tt.permission}
			assert.Equal(t, tt.want, g.CanWrite())
		})
	}
}

func TestRequireWrite(t *testing.T) {
	g := &Gateway{available: true, permission: "read", owner: "flowteam", repo: "api"}

	var apiErr *APIError
	err := g.requireWrite()
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureForbidden, apiErr.Tag)
	assert.Contains(t, apiErr.Remediation, `"read"`)

	g.permission = "write"
	assert.NoError(t, g.requireWrite())

	g.available = false
	err = g.requireWrite()
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureNotAvailable, apiErr.Tag)
}

func TestWriteOperationsFailFastWhenReadOnly(t *testing.T) {
	g := &Gateway{
		available:  true,
		permission: "read",
		owner:      "flowteam",
		repo:       "api",
		limiter:    rate.NewLimiter(rate.Every(MinInterval), 1),
	}
	ctx := context.Background()

	var apiErr *APIError
	_, err := g.CreateIssue(ctx, "title", "", nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureForbidden, apiErr.Tag)

	err = g.CommentIssue(ctx, 1, "status")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureForbidden, apiErr.Tag)

	_, err = g.CreatePR(ctx, "title", "", "feature/x", "main", false)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, FailureForbidden, apiErr.Tag)
}

func TestRecordRateUpdatesState(t *testing.T) {
	g := newTestGateway()
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	g.recordRate(&github.Response{Rate: github.Rate{Limit: 5000, Remaining: 4990, Reset: github.Timestamp{Time: reset}}})

	state := g.RateLimitState()
	assert.Equal(t, 5000, state.Limit)
	assert.Equal(t, 4990, state.Remaining)
	assert.Equal(t, 10, state.Used)
	assert.True(t, state.ResetAt.Equal(reset))
}
