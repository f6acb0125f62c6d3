// Package orchestrator drives the five phase state machines (Start,
// Continue, Finish, Team, Help-Flow) over a wired commands.App,
// composing Git adapter actions with API gateway actions, backup
// checkpoints, and notification fanout.
package orchestrator

// Prompter abstracts the interactive prompt UI so the phase machines
// stay testable without a terminal. A phase depends on nothing more
// than this narrow contract.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(prompt string) bool
	// Select offers a list of options and returns the chosen index;
	// ok is false if the user cancels.
	Select(prompt string, options []string) (index int, ok bool)
	// Input asks for a free-text line; ok is false if the user
	// cancels.
	Input(prompt string) (value string, ok bool)
}
