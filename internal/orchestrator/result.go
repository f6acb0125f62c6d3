package orchestrator

import (
	"github.com/flowteam/flowctl/internal/model"
	"github.com/flowteam/flowctl/internal/notify"
)

// aborted builds a PhaseResult for a clean, non-error termination: the
// operator declined a prompt or a precondition wasn't met. reason is a
// machine-readable tag; message is shown to the operator.
func aborted(reason, message string) model.PhaseResult {
	return model.PhaseResult{
		Status:   model.PhaseAborted,
		Reason:   reason,
		Messages: []string{message},
	}
}

// done builds a PhaseResult for a successful completion, recording
// whichever artifacts the phase produced.
func done(branch string, issue *model.Issue, pr *model.PullRequest, message string) model.PhaseResult {
	return model.PhaseResult{
		Status: model.PhaseCompleted,
		Artifacts: model.PhaseArtifacts{
			Branch: branch,
			Issue:  issue,
			PR:     pr,
		},
		Messages: []string{message},
	}
}

// notifyMessage wraps a title and optional URL into a notify.Message
// with no body, the shape every phase's team notification uses.
func notifyMessage(title, url string) notify.Message {
	return notify.Message{Title: title, URL: url}
}
