// Package configops implements the three configuration-maintenance
// flags of the root command: --check-config, --setup, and
// --fix-config. Each runs and exits without starting a phase.
package configops

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flowteam/flowctl/internal/backupstore"
	"github.com/flowteam/flowctl/internal/cfgtree"
	"github.com/flowteam/flowctl/internal/validate"
)

// Prompter is the narrow prompt surface setup needs.
type Prompter interface {
	Confirm(prompt string) bool
	Input(prompt string) (string, bool)
}

// CheckConfig loads the layered configuration, prints a per-key
// report to w, and returns an error if any required key is missing or
// malformed.
func CheckConfig(w io.Writer, dotEnvPath string) error {
	config, err := cfgtree.Load(dotEnvPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var broken int
	for _, result := range config.Check() {
		mark := "✓"
		if !result.Present || result.Problem != "" {
			mark = "✗"
			if result.Problem != "" {
				broken++
			}
		}
		line := fmt.Sprintf("%s %-28s source=%s", mark, result.Key, result.Source)
		if result.Problem != "" {
			line += "  (" + result.Problem + ")"
		}
		fmt.Fprintln(w, line)
	}

	if broken > 0 {
		return fmt.Errorf("%d configuration problem(s) found", broken)
	}
	fmt.Fprintln(w, "configuration OK")
	return nil
}

// Setup runs the interactive first-time setup: it collects and
// validates a GitHub token and optional Slack channel, then writes
// them to the user-global config file.
func Setup(w io.Writer, prompter Prompter) error {
	values := map[string]string{}

	token, ok := prompter.Input("GitHub personal access token (ghp_... or github_pat_...):")
	if !ok {
		return fmt.Errorf("setup was cancelled")
	}
	if result := validate.Token(token); !result.Valid {
		return fmt.Errorf("invalid token: %s", result.Err)
	}
	values["GITHUB_TOKEN"] = token

	if prompter.Confirm("configure Slack notifications?") {
		channel, ok := prompter.Input("Slack channel (e.g. #general):")
		if ok {
			result := validate.SlackChannel(channel)
			if !result.Valid {
				return fmt.Errorf("invalid Slack channel: %s", result.Err)
			}
			values["SLACK_CHANNEL"] = result.Value
			if token, ok := prompter.Input("Slack bot token:"); ok && token != "" {
				values["SLACK_TOKEN"] = token
			}
		}
	}

	path, err := cfgtree.UserGlobalPath()
	if err != nil {
		return err
	}
	if err := writeUserGlobal(path, values); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", path)
	return nil
}

func writeUserGlobal(path string, values map[string]string) error {
	existing := map[string]string{}
	if data, err := os.ReadFile(path); err == nil { //nolint:gosec // path is derived from the user's own home directory
		_ = json.Unmarshal(data, &existing)
	}
	for k, v := range values {
		existing[k] = v
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user-global config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write user-global config: %w", err)
	}
	return nil
}

// FixConfig performs best-effort repair: any tracked file with a
// known default (the filename-to-default-content table) that is
// missing from repoRoot is created from that default.
func FixConfig(w io.Writer, repoRoot string) error {
	var created int
	for name, content := range backupstore.DefaultContent {
		path := filepath.Join(repoRoot, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		fmt.Fprintf(w, "created %s\n", name)
		created++
	}
	if created == 0 {
		fmt.Fprintln(w, "nothing to repair")
	}
	return nil
}
