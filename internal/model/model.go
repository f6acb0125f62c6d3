// Package model defines the shared data types passed between the
// orchestrator, the API gateway, the Git adapter, and the backup store:
// one place for the tagged values and records every phase and adapter
// agrees on.
package model

import "time"

// WorkType tags the kind of work a Start phase is branching for.
type WorkType string

const (
	WorkFeature  WorkType = "feature"
	WorkBugfix   WorkType = "bugfix"
	WorkHotfix   WorkType = "hotfix"
	WorkDocs     WorkType = "docs"
	WorkRefactor WorkType = "refactor"
	WorkTest     WorkType = "test"
	WorkChore    WorkType = "chore"
)

// WorkTypeInfo describes one WorkType's display name, branch prefix,
// and help blurb. Loaded once at startup; immutable thereafter.
type WorkTypeInfo struct {
	Type        WorkType
	DisplayName string
	Prefix      string
	Help        string
}

// WorkTypes is the immutable, ordered table of all recognized work
// types. Order determines menu presentation order in the Start phase.
var WorkTypes = []WorkTypeInfo{
	{WorkFeature, "Feature", "feature/", "A new capability or user-facing behavior."},
	{WorkBugfix, "Bug fix", "bugfix/", "A fix for incorrect behavior."},
	{WorkHotfix, "Hotfix", "hotfix/", "An urgent fix bound for an expedited release."},
	{WorkDocs, "Documentation", "docs/", "Documentation-only changes."},
	{WorkRefactor, "Refactor", "refactor/", "Internal restructuring with no behavior change."},
	{WorkTest, "Test", "test/", "Test-only changes."},
	{WorkChore, "Chore", "chore/", "Maintenance work: deps, tooling, CI."},
}

// LookupWorkType finds a WorkTypeInfo by its tag. ok is false for an
// unrecognized tag.
func LookupWorkType(t WorkType) (WorkTypeInfo, bool) {
	for _, info := range WorkTypes {
		if info.Type == t {
			return info, true
		}
	}
	return WorkTypeInfo{}, false
}

// BranchPlan is the result of deriving a branch name for a unit of
// work. FullName must equal Prefix + "issue-<N>-" (if IssueNumber is
// set) + Slug, and must pass validate.BranchName.
type BranchPlan struct {
	WorkType    WorkType
	IssueNumber int // 0 means no associated issue
	Slug        string
	FullName    string
}

// IssueState is the lifecycle state of a tracked GitHub issue.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// Issue mirrors a GitHub issue relevant to a unit of work.
type Issue struct {
	Number    int
	Title     string
	Body      string
	Labels    map[string]struct{}
	Assignees map[string]struct{}
	State     IssueState
	UpdatedAt time.Time
	URL       string
}

// ReviewState is the state of a single PR review.
type ReviewState string

const (
	ReviewApproved         ReviewState = "APPROVED"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewCommented        ReviewState = "COMMENTED"
	ReviewPending          ReviewState = "PENDING"
)

// Review is a single review event on a PullRequest.
type Review struct {
	User        string
	State       ReviewState
	SubmittedAt time.Time
}

// PullRequest mirrors a GitHub pull request created by the Finish phase.
type PullRequest struct {
	Number    int
	Title     string
	Body      string
	HeadRef   string
	BaseRef   string
	State     string
	Draft     bool
	Reviewers map[string]struct{}
	Reviews   []Review
	CreatedAt time.Time
	MergedAt  *time.Time
	URL       string
}

// SyncState classifies a branch's relationship to its upstream.
type SyncState string

const (
	SyncUpToDate SyncState = "up_to_date"
	SyncAhead    SyncState = "ahead"
	SyncBehind   SyncState = "behind"
	SyncDiverged SyncState = "diverged"
	SyncNoRemote SyncState = "no_remote"
)

// GitStatus is a point-in-time snapshot of the working tree. It is
// never cached across operations; every consumer must re-fetch it.
type GitStatus struct {
	CurrentBranch    string
	Ahead            int
	Behind           int
	Staged           []string
	Modified         []string
	Untracked        []string
	Conflicted       []string
	HasRemoteOrigin  bool
	Tracking         string
}

// Dirty reports whether the working tree has anything staged,
// modified, untracked, or conflicted.
func (s GitStatus) Dirty() bool {
	return len(s.Staged) > 0 || len(s.Modified) > 0 || len(s.Untracked) > 0 || len(s.Conflicted) > 0
}

// RecommendationType tags the kind of next action suggested to the
// user by the work-status analyzer.
type RecommendationType string

const (
	RecCommit       RecommendationType = "commit"
	RecPull         RecommendationType = "pull"
	RecPush         RecommendationType = "push"
	RecSync         RecommendationType = "sync"
	RecTest         RecommendationType = "test"
	RecUpdateIssue  RecommendationType = "update_issue"
	RecUpdateStatus RecommendationType = "update_status"
)

// Priority is a ranking tier for a Recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// recommendationOrder fixes the priority ranking:
// commit > pull > push > sync > test > update_issue > update_status.
var recommendationOrder = map[RecommendationType]int{
	RecCommit:       0,
	RecPull:         1,
	RecPush:         2,
	RecSync:         3,
	RecTest:         4,
	RecUpdateIssue:  5,
	RecUpdateStatus: 6,
}

// RecommendationRank returns the fixed ordering key for a
// recommendation type; lower sorts first.
func RecommendationRank(t RecommendationType) int {
	if rank, ok := recommendationOrder[t]; ok {
		return rank
	}
	return len(recommendationOrder)
}

// Recommendation is one ranked next action the Continue phase may
// dispatch.
type Recommendation struct {
	Type        RecommendationType
	Priority    Priority
	Title       string
	Description string
	Action      string // action tag consumed by the Continue dispatcher
}

// WorkStatus is the analyzer's derived summary of a branch's state.
type WorkStatus struct {
	Branch               string
	Sync                 SyncState
	Uncommitted          int
	Unpushed             int
	HoursSinceBranchCreated float64
	HoursSinceLastCommit    float64
	IsStale               bool // hours-since-last-commit > 24
	IsLongRunning         bool // hours-since-branch-created > 8
	Issue                 *Issue
	Recommendations       []Recommendation
}

// RateLimitState mirrors the GitHub API's rate-limit window, owned
// exclusively by the API gateway.
type RateLimitState struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Used      int
}

// BackupKind distinguishes full from incremental backups.
type BackupKind string

const (
	BackupFull        BackupKind = "full"
	BackupIncremental BackupKind = "incremental"
)

// BackupFileKind distinguishes a snapshotted file from a directory.
type BackupFileKind string

const (
	BackupFileRegular BackupFileKind = "file"
	BackupFileDir     BackupFileKind = "dir"
)

// BackupFileEntry records one snapshotted path.
type BackupFileEntry struct {
	Path     string         `json:"path" yaml:"path"`
	Kind     BackupFileKind `json:"kind" yaml:"kind"`
	Size     int64          `json:"size" yaml:"size"`
	ModTime  time.Time      `json:"mtime" yaml:"mtime"`
	Checksum string         `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// BackupRecord describes one snapshot in the backup store's
// append-front index.
type BackupRecord struct {
	ID          string            `json:"id" yaml:"id"`
	Kind        BackupKind        `json:"kind" yaml:"kind"`
	Operation   string            `json:"operation" yaml:"operation"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
	BasedOnID   string            `json:"based_on_id,omitempty" yaml:"based_on_id,omitempty"`
	Files       []BackupFileEntry `json:"files" yaml:"files"`
	TotalSize   int64             `json:"total_size" yaml:"total_size"`
	Checksum    string            `json:"checksum" yaml:"checksum"`
}

// Severity classifies how the Error Handler should treat a tagged
// domain error.
type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeverityRecoverable Severity = "recoverable"
	SeverityWarning     Severity = "warning"
	SeverityUnknown     Severity = "unknown"
)

// ErrorClassification is the outcome of classifying one error as it
// bubbles into the Error Handler.
type ErrorClassification struct {
	Severity     Severity
	TypeTag      string
	Recoverable  bool
}

// PhaseStatus is the terminal status of a command orchestrator phase.
type PhaseStatus string

const (
	PhaseCompleted PhaseStatus = "completed"
	PhaseAborted   PhaseStatus = "aborted"
	PhaseFailed    PhaseStatus = "failed"
)

// PhaseArtifacts records the side-effect handles a phase produced.
type PhaseArtifacts struct {
	Branch string
	Issue  *Issue
	PR     *PullRequest
}

// PhaseResult is the structured outcome every phase state machine
// returns to its Cobra command.
type PhaseResult struct {
	Status              PhaseStatus
	Artifacts           PhaseArtifacts
	Messages            []string
	Reason              string // machine-readable termination reason, e.g. "ON_DEFAULT_BRANCH"
	RequiresManualAction bool
}
