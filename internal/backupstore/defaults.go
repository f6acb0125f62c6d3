package backupstore

// DefaultTargets is the fixed set of project files snapshotted by every
// backup: the secrets file, the package manifest, and the ignore file.
// The tool's own state directory is snapshotted separately (see
// Store.stateDir) since it is recursive.
var DefaultTargets = []string{
	".env",
	"package.json",
	".gitignore",
}

// DefaultContent is the filename-to-default-content table consulted by
// --fix-config and the FILE_NOT_FOUND recovery strategy when a tracked
// file is missing.
var DefaultContent = map[string]string{
	".env":        defaultEnvExample,
	".gitignore":  defaultGitignore,
}

const defaultEnvExample = `# GitHub personal access token (required)
GITHUB_TOKEN=

# Slack integration (optional)
SLACK_TOKEN=
SLACK_CHANNEL=#general

# Discord integration (optional)
DISCORD_WEBHOOK_URL=

# Workflow defaults
DEFAULT_BRANCH=main
AUTO_PUSH=false
AUTO_PR=false
CONFIRM_DESTRUCTIVE_ACTIONS=true

NODE_ENV=development
DEBUG=false
LOG_LEVEL=info
`

const defaultGitignore = `.teamflow/
node_modules/
*.log
.env
`
