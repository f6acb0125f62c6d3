package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptPrompter replays canned answers, in order, for each prompt
// kind.
type scriptPrompter struct {
	confirms []bool
	selects  []int
	inputs   []string
}

func (s *scriptPrompter) Confirm(string) bool {
	if len(s.confirms) == 0 {
		return false
	}
	answer := s.confirms[0]
	s.confirms = s.confirms[1:]
	return answer
}

func (s *scriptPrompter) Select(string, []string) (int, bool) {
	if len(s.selects) == 0 {
		return 0, false
	}
	choice := s.selects[0]
	s.selects = s.selects[1:]
	if choice < 0 {
		return 0, false
	}
	return choice, true
}

func (s *scriptPrompter) Input(string) (string, bool) {
	if len(s.inputs) == 0 {
		return "", false
	}
	value := s.inputs[0]
	s.inputs = s.inputs[1:]
	return value, true
}

func TestBuildPRBody(t *testing.T) {
	tests := []struct {
		name        string
		branch      string
		description string
		want        string
	}{
		{"issue branch, no description", "bugfix/issue-5-login", "", "Closes #5"},
		{"issue branch with description", "feature/issue-12-x", "adds the thing", "adds the thing\n\nCloses #12"},
		{"plain branch keeps description", "feature/login", "adds the thing", "adds the thing"},
		{"plain branch, empty", "feature/login", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPRBody(tt.branch, tt.description))
		})
	}
}

func TestComposeCommitMessage(t *testing.T) {
	t.Run("well-formed", func(t *testing.T) {
		p := &scriptPrompter{selects: []int{1}, inputs: []string{"add login flow"}}
		msg, ok := composeCommitMessage(p)
		require.True(t, ok)
		assert.Equal(t, "fix: add login flow", msg)
	})

	t.Run("empty description refused", func(t *testing.T) {
		p := &scriptPrompter{selects: []int{0}, inputs: []string{""}}
		_, ok := composeCommitMessage(p)
		assert.False(t, ok)
	})

	t.Run("upper-case first letter refused", func(t *testing.T) {
		p := &scriptPrompter{selects: []int{0}, inputs: []string{"Add login flow"}}
		_, ok := composeCommitMessage(p)
		assert.False(t, ok)
	})

	t.Run("trailing period refused", func(t *testing.T) {
		p := &scriptPrompter{selects: []int{0}, inputs: []string{"add login flow."}}
		_, ok := composeCommitMessage(p)
		assert.False(t, ok)
	})

	t.Run("cancelled type selection", func(t *testing.T) {
		p := &scriptPrompter{selects: []int{-1}}
		_, ok := composeCommitMessage(p)
		assert.False(t, ok)
	})
}
