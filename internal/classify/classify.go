// Package classify implements the error handler's severity
// classification: every error that crosses a component boundary is
// mapped to one of four severities, either from a domain-specific tag
// already produced by gitexec or ghgateway, or by message-pattern
// matching as a fallback for everything else.
package classify

import (
	"strings"
	"sync"

	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/ghgateway"
	"github.com/flowteam/flowctl/internal/model"
)

// Tag is the canonical error-type vocabulary the Recovery Manager
// dispatches on.
type Tag string

const (
	TagRepoCorruption      Tag = "REPO_CORRUPTION"
	TagPermissionDenied    Tag = "PERMISSION_DENIED"
	TagNoDiskSpace         Tag = "NO_DISK_SPACE"
	TagOutOfMemory         Tag = "OUT_OF_MEMORY"
	TagAuthFailed          Tag = "AUTH_FAILED"
	TagNotGitRepository    Tag = "NOT_GIT_REPOSITORY"
	TagForbidden           Tag = "FORBIDDEN"
	TagNotFound            Tag = "NOT_FOUND"
	TagGatewayUnavailable  Tag = "GATEWAY_UNAVAILABLE"

	TagNetworkTimeout       Tag = "NETWORK_TIMEOUT"
	TagConnectionRefused    Tag = "CONNECTION_REFUSED"
	TagMergeConflict        Tag = "MERGE_CONFLICT"
	TagAPIRateLimit         Tag = "API_RATE_LIMIT"
	TagFileNotFound         Tag = "FILE_NOT_FOUND"
	TagFileBusy             Tag = "FILE_BUSY"
	TagRemoteNotFound       Tag = "REMOTE_NOT_FOUND"
	TagBranchNotFound       Tag = "BRANCH_NOT_FOUND"
	TagConfigurationMissing Tag = "CONFIGURATION_MISSING"

	TagFeatureMissing               Tag = "FEATURE_MISSING"
	TagDeprecated                   Tag = "DEPRECATED"
	TagConfigurationMissingNonfatal Tag = "CONFIGURATION_MISSING_NONFATAL"
	TagPerformanceWarning           Tag = "PERFORMANCE_WARNING"
	TagNothingToCommit              Tag = "NOTHING_TO_COMMIT"
	TagUncommittedChanges           Tag = "UNCOMMITTED_CHANGES"
	TagValidation                   Tag = "VALIDATION_ERROR"

	TagUnknown Tag = "UNKNOWN"
)

var severityTable = map[Tag]model.Severity{
	TagRepoCorruption:     model.SeverityCritical,
	TagPermissionDenied:   model.SeverityCritical,
	TagNoDiskSpace:        model.SeverityCritical,
	TagOutOfMemory:        model.SeverityCritical,
	TagAuthFailed:         model.SeverityCritical,
	TagNotGitRepository:   model.SeverityCritical,
	TagForbidden:          model.SeverityCritical,
	TagNotFound:           model.SeverityCritical,
	TagGatewayUnavailable: model.SeverityCritical,

	TagNetworkTimeout:       model.SeverityRecoverable,
	TagConnectionRefused:    model.SeverityRecoverable,
	TagMergeConflict:        model.SeverityRecoverable,
	TagAPIRateLimit:         model.SeverityRecoverable,
	TagFileNotFound:         model.SeverityRecoverable,
	TagFileBusy:             model.SeverityRecoverable,
	TagRemoteNotFound:       model.SeverityRecoverable,
	TagBranchNotFound:       model.SeverityRecoverable,
	TagConfigurationMissing: model.SeverityRecoverable,

	TagFeatureMissing:               model.SeverityWarning,
	TagDeprecated:                   model.SeverityWarning,
	TagConfigurationMissingNonfatal: model.SeverityWarning,
	TagPerformanceWarning:           model.SeverityWarning,
	TagNothingToCommit:              model.SeverityWarning,
	TagUncommittedChanges:           model.SeverityWarning,
	TagValidation:                   model.SeverityWarning,
}

// messagePatterns maps a lowercase substring to a tag, matched in
// table order, for errors that arrive without a domain tag attached.
var messagePatterns = []struct {
	substr string
	tag    Tag
}{
	{"permission denied", TagPermissionDenied},
	{"eacces", TagPermissionDenied},
	{"eperm", TagPermissionDenied},
	{"no space left", TagNoDiskSpace},
	{"enospc", TagNoDiskSpace},
	{"out of memory", TagOutOfMemory},
	{"authentication failed", TagAuthFailed},
	{"unauthorized", TagAuthFailed},
	{"connection refused", TagConnectionRefused},
	{"timeout", TagNetworkTimeout},
	{"deadline exceeded", TagNetworkTimeout},
	{"merge conflict", TagMergeConflict},
	{"conflict", TagMergeConflict},
	{"rate limit", TagAPIRateLimit},
	{"not found", TagFileNotFound},
	{"resource busy", TagFileBusy},
	{"corrupt", TagRepoCorruption},
}

func classifyMessage(msg string) Tag {
	lower := strings.ToLower(msg)
	for _, p := range messagePatterns {
		if strings.Contains(lower, p.substr) {
			return p.tag
		}
	}
	return TagUnknown
}

// FromTag builds an ErrorClassification for an already-known tag.
func FromTag(tag Tag) model.ErrorClassification {
	severity, ok := severityTable[tag]
	if !ok {
		severity = model.SeverityUnknown
	}
	return model.ErrorClassification{
		Severity:    severity,
		TypeTag:     string(tag),
		Recoverable: severity == model.SeverityRecoverable,
	}
}

// FromError classifies a raw, untagged error by message-pattern
// matching.
func FromError(err error) model.ErrorClassification {
	if err == nil {
		return model.ErrorClassification{Severity: model.SeverityUnknown, TypeTag: string(TagUnknown)}
	}
	return FromTag(classifyMessage(err.Error()))
}

// gitTagTable maps gitexec's domain tags onto the classify vocabulary.
var gitTagTable = map[gitexec.ErrorTag]Tag{
	gitexec.TagMergeConflict:      TagMergeConflict,
	gitexec.TagNotGitRepository:   TagNotGitRepository,
	gitexec.TagPermissionDenied:   TagPermissionDenied,
	gitexec.TagRemoteNotFound:     TagRemoteNotFound,
	gitexec.TagBranchNotFound:     TagBranchNotFound,
	gitexec.TagNothingToCommit:    TagNothingToCommit,
	gitexec.TagUncommittedChanges: TagUncommittedChanges,
	gitexec.TagAuthFailed:         TagAuthFailed,
	gitexec.TagNetworkError:       TagNetworkTimeout,
	gitexec.TagTimeout:            TagNetworkTimeout,
	gitexec.TagUnknown:            TagUnknown,
}

// FromGitError classifies an error produced by the Git Adapter.
func FromGitError(err *gitexec.Error) model.ErrorClassification {
	if err == nil {
		return model.ErrorClassification{Severity: model.SeverityUnknown, TypeTag: string(TagUnknown)}
	}
	tag, ok := gitTagTable[err.Tag]
	if !ok {
		tag = TagUnknown
	}
	return FromTag(tag)
}

// apiTagTable maps ghgateway's failure tags onto the classify
// vocabulary.
var apiTagTable = map[ghgateway.FailureTag]Tag{
	ghgateway.FailureUnauthorized: TagAuthFailed,
	ghgateway.FailureRateLimit:    TagAPIRateLimit,
	ghgateway.FailureForbidden:    TagForbidden,
	ghgateway.FailureNotFound:     TagNotFound,
	ghgateway.FailureValidation:   TagValidation,
	ghgateway.FailureTimeout:      TagNetworkTimeout,
	ghgateway.FailureNotAvailable: TagGatewayUnavailable,
}

// FromAPIError classifies an error produced by the API Gateway.
func FromAPIError(err *ghgateway.APIError) model.ErrorClassification {
	if err == nil {
		return model.ErrorClassification{Severity: model.SeverityUnknown, TypeTag: string(TagUnknown)}
	}
	tag, ok := apiTagTable[err.Tag]
	if !ok {
		tag = TagUnknown
	}
	return FromTag(tag)
}

// Counters tallies classifications by severity for diagnostics.
type Counters struct {
	mu     sync.Mutex
	counts map[model.Severity]int
}

// NewCounters returns an empty, ready-to-use Counters.
func NewCounters() *Counters {
	return &Counters{counts: map[model.Severity]int{}}
}

// Record tallies one classification.
func (c *Counters) Record(classification model.ErrorClassification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[classification.Severity]++
}

// Snapshot returns a copy of the current counts.
func (c *Counters) Snapshot() map[model.Severity]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.Severity]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
