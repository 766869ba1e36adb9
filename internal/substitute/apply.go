package substitute

import (
	"encoding/json"
	"path/filepath"

	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// Apply substitutes every placeholder in cfg's entire value tree and returns
// a new, substituted Config plus a Report of what was resolved and what was
// left unresolved. cfg itself is not mutated.
//
// If ctx.ContainerWorkspaceFolder is empty and cfg did not declare a
// workspaceFolder, one is derived before substitution runs so
// ${containerWorkspaceFolder} resolves even on a config that never set the
// field explicitly.
func Apply(cfg *config.Config, ctx Context) (*config.Config, *Report, error) {
	if ctx.ContainerWorkspaceFolder == "" {
		ctx.ContainerWorkspaceFolder = DetermineContainerWorkspaceFolder(cfg, ctx.LocalWorkspaceFolder)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, nil, coreerrors.Internal("failed to serialize config for substitution", err)
	}

	report := newReport()
	substituted, err := walkJSON(data, func(s string) string {
		return substituteString(s, ctx, report)
	})
	if err != nil {
		return nil, nil, coreerrors.Internal("failed to walk config during substitution", err)
	}

	out, err := config.Parse(substituted)
	if err != nil {
		return nil, nil, coreerrors.Internal("failed to reparse substituted config", err)
	}
	return out, report, nil
}

// DetermineContainerWorkspaceFolder returns cfg's declared workspaceFolder,
// or a derived default: "/" for a compose plan, "/workspaces/<basename>"
// otherwise.
func DetermineContainerWorkspaceFolder(cfg *config.Config, localWorkspace string) string {
	if cfg.WorkspaceFolder != "" {
		return cfg.WorkspaceFolder
	}
	if cfg.IsComposePlan() {
		return "/"
	}
	return "/workspaces/" + filepath.Base(localWorkspace)
}
