package cfgtree

import (
	"encoding/json"
	"fmt"
	"os"
)

// ProjectConfig is the project-level tool configuration persisted at
// "<app-dir>/config.json". It holds the repository identity and phase
// defaults that outlive a single invocation, distinct from the
// process-wide ConfigTree.
type ProjectConfig struct {
	Owner              string `json:"owner"`
	Repo               string `json:"repo"`
	DefaultBranch      string `json:"default_branch"`
	AutoPush           bool   `json:"auto_push"`
	AutoPR             bool   `json:"auto_pr"`
}

// LoadProjectConfig reads the project config from filename.
func LoadProjectConfig(filename string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // filename comes from a command-line flag
	if err != nil {
		return nil, fmt.Errorf("failed to read project config file: %w", err)
	}

	var config ProjectConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse project config file: %w", err)
	}
	return &config, nil
}

// SaveProjectConfig writes the project config to filename.
func SaveProjectConfig(filename string, config *ProjectConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write project config file: %w", err)
	}
	return nil
}
