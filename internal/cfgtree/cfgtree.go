// Package cfgtree loads the layered ConfigTree: process environment
// overrides a per-user global JSON file, which overrides a
// project-level ".env" file, which overrides compiled defaults. The
// tree is frozen after Load.
package cfgtree

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppDirName is the directory name used both under $HOME for the
// user-global config and under the project root for persisted state.
const AppDirName = ".teamflow"

// ConfigTree is the frozen, fully-resolved configuration. Field names
// mirror the recognized environment keys.
type ConfigTree struct {
	GitHubToken                string
	SlackToken                 string
	SlackChannel               string
	DiscordWebhookURL          string
	DefaultBranch              string
	AutoPush                   bool
	AutoPR                     bool
	ConfirmDestructiveActions  bool
	NodeEnv                    string
	Debug                      bool
	LogLevel                   string

	// sources records, per key, which layer supplied the effective
	// value, surfaced by --check-config.
	sources map[string]string
}

func defaults() ConfigTree {
	return ConfigTree{
		SlackChannel:              "#general",
		DefaultBranch:             "main",
		AutoPush:                  false,
		AutoPR:                    false,
		ConfirmDestructiveActions: true,
		NodeEnv:                   "development",
		Debug:                     false,
		LogLevel:                  "info",
		sources:                   map[string]string{},
	}
}

// keys is the recognized key list, in presentation order.
var keys = []string{
	"GITHUB_TOKEN", "SLACK_TOKEN", "SLACK_CHANNEL", "DISCORD_WEBHOOK_URL",
	"DEFAULT_BRANCH", "AUTO_PUSH", "AUTO_PR", "CONFIRM_DESTRUCTIVE_ACTIONS",
	"NODE_ENV", "DEBUG", "LOG_LEVEL",
}

// Load resolves the ConfigTree from, highest priority first: process
// environment, the user-global file ($HOME/<AppDirName>/config.json),
// the project-level dotEnvPath file, then compiled defaults.
func Load(dotEnvPath string) (*ConfigTree, error) {
	tree := defaults()

	if projectValues, err := readDotEnv(dotEnvPath); err == nil {
		tree.apply(projectValues, "project(.env)")
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read project config %s: %w", dotEnvPath, err)
	}

	userPath, err := UserGlobalPath()
	if err == nil {
		if userValues, err := readUserGlobal(userPath); err == nil {
			tree.apply(userValues, "user-global")
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read user-global config %s: %w", userPath, err)
		}
	}

	tree.apply(readEnviron(), "environment")

	return &tree, nil
}

// UserGlobalPath returns $HOME/<AppDirName>/config.json.
func UserGlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, AppDirName, "config.json"), nil
}

func readEnviron() map[string]string {
	values := map[string]string{}
	for _, key := range keys {
		if v, present := os.LookupEnv(key); present {
			values[key] = v
		}
	}
	return values
}

func readUserGlobal(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the user's own home directory
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse user-global config: %w", err)
	}
	return raw, nil
}

// readDotEnv is a minimal line-based KEY=VALUE parser covering only
// what the recognized key table needs: KEY=VALUE lines, optional
// surrounding quotes, and '#'-prefixed comments.
func readDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is the caller-supplied project config path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		value = strings.Trim(value, `"'`)
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return values, nil
}

func (c *ConfigTree) apply(values map[string]string, source string) {
	if c.sources == nil {
		c.sources = map[string]string{}
	}
	for key, raw := range values {
		switch key {
		case "GITHUB_TOKEN":
			c.GitHubToken = raw
		case "SLACK_TOKEN":
			c.SlackToken = raw
		case "SLACK_CHANNEL":
			c.SlackChannel = raw
		case "DISCORD_WEBHOOK_URL":
			c.DiscordWebhookURL = raw
		case "DEFAULT_BRANCH":
			c.DefaultBranch = raw
		case "AUTO_PUSH":
			c.AutoPush = parseBool(raw)
		case "AUTO_PR":
			c.AutoPR = parseBool(raw)
		case "CONFIRM_DESTRUCTIVE_ACTIONS":
			c.ConfirmDestructiveActions = parseBool(raw)
		case "NODE_ENV":
			c.NodeEnv = raw
		case "DEBUG":
			c.Debug = parseBool(raw)
		case "LOG_LEVEL":
			c.LogLevel = raw
		default:
			continue
		}
		c.sources[key] = source
	}
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return v
}

// Source reports which layer supplied the effective value for key, or
// "default" if none did.
func (c *ConfigTree) Source(key string) string {
	if src, ok := c.sources[key]; ok {
		return src
	}
	return "default"
}

// CheckResult is one line of a --check-config report.
type CheckResult struct {
	Key     string
	Present bool
	Source  string
	Problem string
}

// Check validates the resolved tree and reports, per recognized key,
// whether it is present and which layer supplied it. It never mutates
// the tree.
func (c *ConfigTree) Check() []CheckResult {
	results := make([]CheckResult, 0, len(keys))
	for _, key := range keys {
		result := CheckResult{Key: key, Source: c.Source(key)}
		switch key {
		case "GITHUB_TOKEN":
			result.Present = c.GitHubToken != ""
			if !result.Present {
				result.Problem = "required for all GitHub API operations"
			}
		case "SLACK_TOKEN":
			result.Present = c.SlackToken != ""
		case "DISCORD_WEBHOOK_URL":
			result.Present = c.DiscordWebhookURL != ""
		case "LOG_LEVEL":
			result.Present = true
			switch c.LogLevel {
			case "error", "warn", "info", "debug":
			default:
				result.Problem = fmt.Sprintf("unrecognized log level %q", c.LogLevel)
			}
		default:
			result.Present = true
		}
		results = append(results, result)
	}
	return results
}
