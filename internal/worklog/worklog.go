// Package worklog provides functions for loading and saving the tool's
// tracked-work state file: every branch the Start phase creates gets an
// entry, and the Finish phase marks it done. The file lives at
// "<app-dir>/work.yaml".
package worklog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowteam/flowctl/internal/model"
)

// EntryStatus represents the lifecycle of one tracked unit of work.
type EntryStatus string

const (
	// StatusInProgress indicates the branch exists and work is ongoing
	StatusInProgress EntryStatus = "in_progress"
	// StatusFinished indicates the Finish phase pushed the branch
	StatusFinished EntryStatus = "finished"
)

// Entry is one tracked unit of work.
type Entry struct {
	Branch      string         `yaml:"branch"`
	WorkType    model.WorkType `yaml:"work_type"`
	IssueNumber int            `yaml:"issue_number,omitempty"`
	Status      EntryStatus    `yaml:"status"`
	StartedAt   time.Time      `yaml:"started_at"`
	FinishedAt  *time.Time     `yaml:"finished_at,omitempty"`
	PRNumber    int            `yaml:"pr_number,omitempty"`
}

// Log is the on-disk tracked-work state.
type Log struct {
	Version int     `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Load loads the work log from the specified file. A missing file is
// an empty log, not an error.
func Load(filename string) (*Log, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // filename is under the tool's own state directory
	if os.IsNotExist(err) {
		return &Log{Version: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read work log: %w", err)
	}

	var log Log
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse work log: %w", err)
	}
	return &log, nil
}

// Save saves the work log to the specified file.
func Save(filename string, log *Log) error {
	data, err := yaml.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal work log: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write work log: %w", err)
	}
	return nil
}

// Track appends an in-progress entry for branch, replacing any stale
// entry with the same branch name.
func (l *Log) Track(branch string, workType model.WorkType, issueNumber int, startedAt time.Time) {
	for i := range l.Entries {
		if l.Entries[i].Branch == branch {
			l.Entries[i] = Entry{
				Branch:      branch,
				WorkType:    workType,
				IssueNumber: issueNumber,
				Status:      StatusInProgress,
				StartedAt:   startedAt,
			}
			return
		}
	}
	l.Entries = append(l.Entries, Entry{
		Branch:      branch,
		WorkType:    workType,
		IssueNumber: issueNumber,
		Status:      StatusInProgress,
		StartedAt:   startedAt,
	})
}

// MarkFinished flags branch's entry as finished and records the PR
// number if one was opened. It reports whether an entry existed.
func (l *Log) MarkFinished(branch string, prNumber int, finishedAt time.Time) bool {
	for i := range l.Entries {
		if l.Entries[i].Branch == branch {
			l.Entries[i].Status = StatusFinished
			l.Entries[i].FinishedAt = &finishedAt
			l.Entries[i].PRNumber = prNumber
			return true
		}
	}
	return false
}

// InProgress returns the entries still being worked on.
func (l *Log) InProgress() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Status == StatusInProgress {
			out = append(out, e)
		}
	}
	return out
}
