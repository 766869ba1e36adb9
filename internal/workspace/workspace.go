// Package workspace derives a stable identity for a devcontainer workspace
// and resolves its configuration into the fully merged, substituted form
// every other package (compose, lifecycle, labels) operates on.
package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/deacon-dev/deacon/internal/common"
	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/merge"
	"github.com/deacon-dev/deacon/internal/secrets"
	"github.com/deacon-dev/deacon/internal/substitute"
)

// idLength is the number of hex characters kept from the workspace path's
// hash, matching the truncation compose/docker use for derived image tags.
const idLength = common.HashTruncationLength

// ComputeID returns a short, stable identifier for the workspace at path.
// It depends only on the canonicalized absolute path, so the same checkout
// always yields the same ID across runs and hosts.
func ComputeID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])[:idLength]
}

// ComputeName returns a Docker-safe project name derived from the
// workspace's directory name, falling back to the workspace ID if the
// directory name sanitizes to nothing (e.g. a path of all symbols).
func ComputeName(path string, id string) string {
	base := filepath.Base(filepath.Clean(path))
	if sanitized := common.SanitizeProjectName(base); sanitized != "" {
		return sanitized
	}
	return "workspace_" + id
}

// Resolution is the fully resolved state of one workspace: its merged,
// substituted configuration plus the identifiers and context every
// downstream package (compose, lifecycle, labels) needs.
type Resolution struct {
	ID            string
	Name          string
	Path          string
	ConfigPath    string
	Config        *config.Config
	Hash          string
	SecretsStore  *secrets.Store
	SubstituteCtx substitute.Context
	SubstituteRep *substitute.Report
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	WorkspacePath  string
	ConfigPath     string // explicit --config path; "" to auto-discover
	SecretsFiles   []string
	OverrideConfig *config.Config // parsed --override-config, if any
	ImageLabels    map[string]string
	Logger         *slog.Logger
}

// Resolve loads the devcontainer configuration for a workspace, merges in
// any override and image-label metadata, substitutes variables exactly
// once, and returns the identity and state every command needs to act on
// the workspace. It never touches Docker: its substitution context carries
// no ContainerEnv, so ${containerEnv:...} placeholders without a default are
// left verbatim and listed as unresolved.
func Resolve(ctx context.Context, opts ResolveOptions) (*Resolution, error) {
	if opts.WorkspacePath == "" {
		return nil, coreerrors.Internal("workspace: WorkspacePath must not be empty", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(opts.WorkspacePath)
	if err != nil {
		return nil, coreerrors.Internal("workspace: resolving absolute path", err)
	}

	cfg, configPath, err := config.Load(absPath, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	store, warnings, err := secrets.LoadFiles(opts.SecretsFiles, logger)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("secrets file warning", "detail", w)
	}

	id := ComputeID(absPath)
	name := ComputeName(absPath, id)

	substituteCtx := substitute.Context{
		LocalWorkspaceFolder: absPath,
		LocalEnv:             localEnvResolver(store),
	}
	substituteCtx.ContainerWorkspaceFolder = substitute.DetermineContainerWorkspaceFolder(cfg, absPath)

	merged, report, err := merge.Merge(cfg, merge.Input{
		Override:      opts.OverrideConfig,
		ImageLabels:   opts.ImageLabels,
		WorkspacePath: absPath,
		SubstituteCtx: substituteCtx,
	})
	if err != nil {
		return nil, err
	}

	hash, err := config.Hash(merged)
	if err != nil {
		return nil, coreerrors.Internal("workspace: hashing resolved configuration", err)
	}

	return &Resolution{
		ID:            id,
		Name:          name,
		Path:          absPath,
		ConfigPath:    configPath,
		Config:        merged,
		Hash:          hash,
		SecretsStore:  store,
		SubstituteCtx: substituteCtx,
		SubstituteRep: report,
	}, nil
}

// localEnvResolver resolves ${localEnv:NAME[:default]} against the secrets
// store first (so a loaded secret shadows an equally-named host env var),
// then falls back to the process environment.
func localEnvResolver(store *secrets.Store) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if store != nil {
			if v, ok := store.Get(name); ok {
				return string(v), true
			}
		}
		return os.LookupEnv(name)
	}
}
