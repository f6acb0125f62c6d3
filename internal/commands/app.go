// Package commands provides the shared command scaffolding every
// phase subcommand under cmd/ builds on: an App that wires
// configuration, adapters, and the gateway once, and a CommandBuilder
// for standardized Cobra command construction.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flowteam/flowctl/internal/backupstore"
	"github.com/flowteam/flowctl/internal/cfgtree"
	"github.com/flowteam/flowctl/internal/classify"
	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/ghgateway"
	"github.com/flowteam/flowctl/internal/logging"
	"github.com/flowteam/flowctl/internal/notify"
	"github.com/flowteam/flowctl/internal/recovery"
)

// App is the fully-wired set of dependencies every phase state machine
// operates over.
type App struct {
	RepoRoot    string
	WorkLogPath string

	Config        *cfgtree.ConfigTree
	ProjectConfig *cfgtree.ProjectConfig

	Logger      *slog.Logger
	Adapter     *gitexec.Adapter
	Gateway     *ghgateway.Gateway
	BackupStore *backupstore.Store
	Recovery    *recovery.Manager
	Handler     *classify.Handler
	Notifier    *notify.Fanout
}

// appDir returns "<repoRoot>/<AppDirName>".
func appDir(repoRoot string) string {
	return filepath.Join(repoRoot, cfgtree.AppDirName)
}

// NewApp wires every component leaves-first: config, then logger,
// then the Git adapter, API gateway, and backup store, then the
// recovery manager and error handler on top of them. confirmer drives
// the recovery manager's MERGE_CONFLICT prompt; it may be nil in
// non-interactive contexts, in which case that strategy always
// declines.
func NewApp(ctx context.Context, repoRoot string, confirmer recovery.Confirmer) (*App, error) {
	dir := appDir(repoRoot)

	config, err := cfgtree.Load(filepath.Join(repoRoot, ".env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.SetupWithFile(config.LogLevel, "text", filepath.Join(dir, "logs", "team-flow.log"))

	projectConfigPath := filepath.Join(dir, "config.json")
	projectConfig, err := cfgtree.LoadProjectConfig(projectConfigPath)
	if err != nil {
		projectConfig = &cfgtree.ProjectConfig{DefaultBranch: config.DefaultBranch}
	}

	adapter := gitexec.New(repoRoot)

	remoteURL, _ := adapter.RemoteURL(ctx)
	offlineStatePath := filepath.Join(dir, "state", "offline-mode.json")
	gateway := ghgateway.New(ctx, config.GitHubToken, remoteURL, offlineStatePath)

	store := backupstore.New(filepath.Join(dir, "backups"), repoRoot, dir, nil, adapter)

	recoveryMgr := recovery.NewManager(logger, store, confirmer, repoRoot, offlineStatePath, projectConfigPath)
	handler := classify.NewHandler(logger, recoveryMgr)

	var transports []notify.Transport
	if config.SlackToken != "" {
		transports = append(transports, notify.NewSlackTransport(config.SlackToken, config.SlackChannel))
	}
	if config.DiscordWebhookURL != "" {
		transports = append(transports, notify.NewDiscordTransport(config.DiscordWebhookURL))
	}

	return &App{
		RepoRoot:      repoRoot,
		WorkLogPath:   filepath.Join(dir, "work.yaml"),
		Config:        config,
		ProjectConfig: projectConfig,
		Logger:        logger,
		Adapter:       adapter,
		Gateway:       gateway,
		BackupStore:   store,
		Recovery:      recoveryMgr,
		Handler:       handler,
		Notifier:      notify.NewFanout(transports...),
	}, nil
}
