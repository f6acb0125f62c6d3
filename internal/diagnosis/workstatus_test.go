package diagnosis

import (
	"testing"

	"github.com/flowteam/flowctl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySync(t *testing.T) {
	tests := []struct {
		name   string
		status model.GitStatus
		want   model.SyncState
	}{
		{"no remote", model.GitStatus{}, model.SyncNoRemote},
		{"up to date", model.GitStatus{HasRemoteOrigin: true}, model.SyncUpToDate},
		{"ahead", model.GitStatus{HasRemoteOrigin: true, Ahead: 2}, model.SyncAhead},
		{"behind", model.GitStatus{HasRemoteOrigin: true, Behind: 3}, model.SyncBehind},
		{"diverged", model.GitStatus{HasRemoteOrigin: true, Ahead: 1, Behind: 1}, model.SyncDiverged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySync(tt.status))
		})
	}
}

func TestRecommendCommitFirst(t *testing.T) {
	ws := model.WorkStatus{
		Uncommitted: 3,
		Unpushed:    2,
		Sync:        model.SyncAhead,
		IsStale:     true,
	}

	recs := rank(recommend(ws))
	require.NotEmpty(t, recs)
	assert.Equal(t, model.RecCommit, recs[0].Type, "commit outranks everything else")

	// The fixed ordering: commit > pull > push > sync > test >
	// update_issue > update_status.
	for i := 1; i < len(recs); i++ {
		assert.LessOrEqual(t,
			model.RecommendationRank(recs[i-1].Type),
			model.RecommendationRank(recs[i].Type))
	}
}

func TestRecommendBehindSuggestsPull(t *testing.T) {
	ws := model.WorkStatus{Sync: model.SyncBehind}
	recs := rank(recommend(ws))
	require.NotEmpty(t, recs)
	assert.Equal(t, model.RecPull, recs[0].Type)
}

func TestRecommendDivergedSuggestsPullThenSync(t *testing.T) {
	ws := model.WorkStatus{Sync: model.SyncDiverged}
	recs := rank(recommend(ws))
	require.GreaterOrEqual(t, len(recs), 2)
	assert.Equal(t, model.RecPull, recs[0].Type)
	assert.Equal(t, model.RecSync, recs[1].Type)
}

func TestRecommendOpenIssueSuggestsUpdate(t *testing.T) {
	ws := model.WorkStatus{
		Issue: &model.Issue{Number: 12, State: model.IssueOpen},
	}
	recs := rank(recommend(ws))
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecUpdateIssue, recs[0].Type)
}

func TestRecommendCleanTreeIsQuiet(t *testing.T) {
	ws := model.WorkStatus{Sync: model.SyncUpToDate}
	assert.Empty(t, recommend(ws))
}

func TestRecommendStaleBranchSuggestsStatusUpdate(t *testing.T) {
	ws := model.WorkStatus{Sync: model.SyncUpToDate, IsStale: true}
	recs := rank(recommend(ws))
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecUpdateStatus, recs[0].Type)
}
