package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/lifecycle"
	"github.com/deacon-dev/deacon/internal/workspace"
)

// ExitCode maps a command error to the process exit code the spec's CLI
// surface promises: 0 success, 1 general error, 2 validation error, 3
// runtime unavailable.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coreErr *coreerrors.CoreError
	if errors.As(err, &coreErr) {
		switch coreErr.Category {
		case coreerrors.CategoryConfig:
			return 2
		case coreerrors.CategoryDocker:
			if coreErr.Code == coreerrors.CodeDockerNotInstalled || coreErr.Code == coreerrors.CodeDockerDaemonUnreachable {
				return 3
			}
			return 1
		default:
			return 1
		}
	}
	return 1
}

// loadOverrideConfig parses --override-config, if supplied.
func loadOverrideConfig() (*config.Config, error) {
	if overridePath == "" {
		return nil, nil
	}
	return config.ParseFile(overridePath)
}

// resolveWorkspace loads and fully resolves the devcontainer configuration
// for the current --workspace-folder/--config/--override-config/
// --secrets-file flags, with no image-label metadata layer (callers that
// have already pulled/built an image should call workspace.Resolve directly
// with ImageLabels set instead).
func resolveWorkspace(ctx context.Context) (*workspace.Resolution, error) {
	override, err := loadOverrideConfig()
	if err != nil {
		return nil, err
	}

	return workspace.Resolve(ctx, workspace.ResolveOptions{
		WorkspacePath:  workspacePath,
		ConfigPath:     configPath,
		SecretsFiles:   secretsFiles,
		OverrideConfig: override,
		Logger:         slog.Default(),
	})
}

// aggregatePhaseCommands builds the per-phase command map the lifecycle
// orchestrator needs from the resolved config alone: this codebase's
// feature metadata carries no lifecycle command fields, so every phase's
// only contributor is the config itself.
func aggregatePhaseCommands(cfg *config.Config) map[lifecycle.Phase][]config.AggregatedCommand {
	phaseCmd := map[lifecycle.Phase]config.LifecycleCommand{
		lifecycle.OnCreate:      cfg.OnCreateCommand,
		lifecycle.UpdateContent: cfg.UpdateContentCommand,
		lifecycle.PostCreate:    cfg.PostCreateCommand,
		lifecycle.PostStart:     cfg.PostStartCommand,
		lifecycle.PostAttach:    cfg.PostAttachCommand,
	}
	out := make(map[lifecycle.Phase][]config.AggregatedCommand, len(phaseCmd))
	for phase, cmd := range phaseCmd {
		if cmd.IsEmpty() {
			out[phase] = nil
			continue
		}
		out[phase] = []config.AggregatedCommand{{Source: config.SourceConfig, Command: cmd}}
	}
	return out
}
