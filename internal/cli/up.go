package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/cache"
	"github.com/deacon-dev/deacon/internal/common"
	"github.com/deacon-dev/deacon/internal/compose"
	"github.com/deacon-dev/deacon/internal/config"
	"github.com/deacon-dev/deacon/internal/docker"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/features"
	"github.com/deacon-dev/deacon/internal/labels"
	"github.com/deacon-dev/deacon/internal/lifecycle"
	"github.com/deacon-dev/deacon/internal/lockfile"
	"github.com/deacon-dev/deacon/internal/output"
	"github.com/deacon-dev/deacon/internal/probe"
	"github.com/deacon-dev/deacon/internal/workspace"
)

// probeCache adapts internal/cache's two-level façade to probe.Cache.
type probeCache struct {
	facade *cache.Facade
}

func newProbeCache() *probeCache {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &probeCache{facade: cache.NewFacade(128, filepath.Join(cacheDir, "deacon", "probe"))}
}

func (c *probeCache) Get(key probe.Key) (map[string]string, bool) {
	var out map[string]string
	ok := c.facade.Get(cache.ProbeCacheKey{ContainerID: key.ContainerID, Mode: key.Mode, User: key.User}, &out)
	return out, ok
}

func (c *probeCache) Set(key probe.Key, value map[string]string) {
	_ = c.facade.Set(cache.ProbeCacheKey{ContainerID: key.ContainerID, Mode: key.Mode, User: key.User}, value, 3600)
}

// resolveRemoteEnv probes the container's effective environment (per
// userEnvProbe) and layers it under the config's own remoteEnv, matching
// the prober's declared layering: probed env -> remoteEnv -> (no CLI
// overrides at this call site).
func resolveRemoteEnv(ctx context.Context, cli *docker.Client, containerID string, cfg *config.Config) (map[string]string, error) {
	prober := probe.NewProber(cli, newProbeCache())
	probed, err := prober.Probe(ctx, containerID, probe.ParseMode(cfg.UserEnvProbe), effectiveUser(cfg))
	if err != nil {
		return nil, err
	}

	result := probed
	cfg.RemoteEnv.Range(func(k string, v *string) bool {
		if v != nil {
			result[k] = *v
		}
		return true
	})
	return result, nil
}

var (
	upSkipPostCreate bool
	upSkipNonBlocking bool
	upBuildNoCache   bool
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Create and start the devcontainer for the current workspace",
	RunE:  runUp,
}

func init() {
	upCmd.Flags().BoolVar(&upSkipPostCreate, "skip-post-create", false, "omit postCreateCommand for this invocation")
	upCmd.Flags().BoolVar(&upSkipNonBlocking, "skip-non-blocking-commands", false, "omit postStartCommand/postAttachCommand for this invocation")
	upCmd.Flags().BoolVar(&upBuildNoCache, "no-cache", false, "build images without using the build cache")
}

// upResult is the JSON contract the spec promises for `up`.
type upResult struct {
	Outcome             string            `json:"outcome"`
	ContainerID         string            `json:"containerId,omitempty"`
	RemoteUser          string            `json:"remoteUser,omitempty"`
	RemoteEnv           map[string]string `json:"remoteEnv,omitempty"`
	DisallowedFeatureID string            `json:"disallowedFeatureId,omitempty"`
	Error               string            `json:"error,omitempty"`
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := up(ctx)
	if output.IsJSON() {
		if err != nil {
			res = &upResult{Outcome: "error", Error: err.Error(), DisallowedFeatureID: disallowedFeatureID(err)}
		}
		_ = output.JSON(res)
		if err != nil {
			return err
		}
		return nil
	}

	if err != nil {
		output.PrintError(err)
		return err
	}
	output.Success("container %s is up (remoteUser=%s)", res.ContainerID, res.RemoteUser)
	return nil
}

func up(ctx context.Context) (*upResult, error) {
	resolution, err := resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	cfg := resolution.Config

	cli, err := docker.NewClient()
	if err != nil {
		return nil, coreerrors.DockerNotInstalled(err)
	}
	defer cli.Close()
	if err := cli.Ping(ctx); err != nil {
		return nil, coreerrors.DockerDaemonUnreachable(err)
	}

	mgr := labels.NewManager(cli.APIClient(), nil)

	if cfg.IsComposePlan() {
		return upCompose(ctx, resolution, cli, mgr)
	}
	return upSingle(ctx, resolution, cli, mgr)
}

func upSingle(ctx context.Context, res *workspace.Resolution, cli *docker.Client, mgr *labels.Manager) (*upResult, error) {
	cfg := res.Config

	existing, err := mgr.FindPrimaryContainer(ctx, res.ID)
	if err != nil {
		return nil, coreerrors.DockerCliError("find existing container", err)
	}
	if existing != nil {
		if err := cli.StartContainer(ctx, existing.ID); err != nil {
			return nil, coreerrors.DockerCliError("start container", err)
		}
		if err := runLifecycle(ctx, cli, existing.ID, cfg, lifecycle.ModeStart, false); err != nil {
			return nil, err
		}
		remoteEnv, err := resolveRemoteEnv(ctx, cli, existing.ID, cfg)
		if err != nil {
			return nil, err
		}
		return &upResult{Outcome: "success", ContainerID: existing.ID, RemoteUser: effectiveUser(cfg), RemoteEnv: remoteEnv}, nil
	}

	image, err := resolveImage(ctx, res, cli)
	if err != nil {
		return nil, err
	}

	containerID, err := cli.CreateContainer(ctx, docker.CreateContainerOptions{
		Name:            "deacon_" + res.ID,
		Image:           image,
		WorkspacePath:   res.Path,
		WorkspaceFolder: containerWorkspaceFolder(cfg, res.Path),
		Labels: mgr.Build(labels.BuildOptions{
			WorkspaceID:   res.ID,
			WorkspacePath: res.Path,
			ConfigPath:    res.ConfigPath,
			CreatedBy:     "deacon",
			HashOverall:   res.Hash,
			IsPrimary:     true,
		}).ToMap(),
		Env:        envList(cfg),
		Mounts:     mountList(cfg),
		RunArgs:    cfg.RunArgs,
		User:       effectiveUser(cfg),
		Privileged: boolVal(cfg.Privileged),
		Init:       boolVal(cfg.Init),
		CapAdd:     cfg.CapAdd,
		SecurityOpt: cfg.SecurityOpt,
		Ports:      cfg.GetForwardPorts(),
	})
	if err != nil {
		return nil, coreerrors.DockerCliError("create container", err)
	}

	if err := cli.StartContainer(ctx, containerID); err != nil {
		return nil, coreerrors.DockerCliError("start container", err)
	}

	if err := runLifecycle(ctx, cli, containerID, cfg, lifecycle.ModeCreate, true); err != nil {
		return nil, err
	}

	remoteEnv, err := resolveRemoteEnv(ctx, cli, containerID, cfg)
	if err != nil {
		return nil, err
	}
	return &upResult{Outcome: "success", ContainerID: containerID, RemoteUser: effectiveUser(cfg), RemoteEnv: remoteEnv}, nil
}

func upCompose(ctx context.Context, res *workspace.Resolution, cli *docker.Client, mgr *labels.Manager) (*upResult, error) {
	runner, err := compose.NewRunner(res.Path, res.ID, res.ConfigPath, res.Config, res.ID, res.Hash)
	if err != nil {
		return nil, coreerrors.Internal("constructing compose runner", err)
	}
	defer runner.Cleanup()

	if err := runner.Up(ctx, compose.UpOptions{Build: true, Verbose: output.IsVerbose()}); err != nil {
		return nil, coreerrors.DockerCliError("compose up", err)
	}

	primary, err := mgr.FindPrimaryContainer(ctx, res.ID)
	if err != nil || primary == nil {
		return nil, coreerrors.DockerCliError("locate compose primary container", err)
	}

	if err := runLifecycle(ctx, cli, primary.ID, res.Config, lifecycle.ModeCreate, true); err != nil {
		return nil, err
	}

	remoteEnv, err := resolveRemoteEnv(ctx, cli, primary.ID, res.Config)
	if err != nil {
		return nil, err
	}
	return &upResult{Outcome: "success", ContainerID: primary.ID, RemoteUser: effectiveUser(res.Config), RemoteEnv: remoteEnv}, nil
}

// resolveImage returns the image ref to run: the declared image, or a
// freshly built one if the config declares a Dockerfile build.
func resolveImage(ctx context.Context, res *workspace.Resolution, cli *docker.Client) (string, error) {
	cfg := res.Config
	if cfg.Image != "" {
		if exists, _ := cli.ImageExists(ctx, cfg.Image); !exists {
			if err := cli.PullImage(ctx, cfg.Image); err != nil {
				return "", coreerrors.DockerCliError("pull image", err)
			}
		}
		return cfg.Image, nil
	}

	if cfg.Build == nil {
		return "", coreerrors.ConfigValidation("devcontainer.json must declare image, build, or dockerComposeFile")
	}

	tag := fmt.Sprintf("%s%s:%s", common.ImageTagPrefix, res.ID, truncateHash(res.Hash))
	if err := cli.BuildImage(ctx, docker.BuildOptions{
		Tag:        tag,
		Dockerfile: cfg.Build.Dockerfile,
		Context:    cfg.Build.Context,
		Args:       cfg.Build.Args,
		Target:     cfg.Build.Target,
		CacheFrom:  cfg.Build.CacheFrom,
		ConfigDir:  filepath.Dir(res.ConfigPath),
		Stdout:     verboseWriter(),
		Stderr:     verboseWriter(),
	}); err != nil {
		return "", coreerrors.DockerCliError("build image", err)
	}

	return withFeatures(ctx, res, cli, tag)
}

// withFeatures layers the declared features onto baseImage, returning a
// derived image tag if any feature is declared, or baseImage unchanged.
func withFeatures(ctx context.Context, res *workspace.Resolution, cli *docker.Client, baseImage string) (string, error) {
	cfg := res.Config
	if cfg.Features == nil || cfg.Features.Len() == 0 {
		return baseImage, nil
	}

	lock, _, err := lockfile.Load(res.ConfigPath)
	if err != nil {
		return "", coreerrors.Internal("loading feature lockfile", err)
	}
	if lock == nil {
		lock = lockfile.New()
	}

	plan, err := features.Resolve(ctx, cfg.Features, features.Options{
		ConfigDir: filepath.Dir(res.ConfigPath),
		Lock:      lockfileProvider{lock},
	})
	if err != nil {
		return "", err
	}

	buildDir, err := os.MkdirTemp("", "deacon-features-")
	if err != nil {
		return "", coreerrors.Internal("creating feature build dir", err)
	}
	defer os.RemoveAll(buildDir)

	dockerfile := "FROM " + baseImage + "\n"
	if plan.EntrypointScript != "" {
		scriptPath := filepath.Join(buildDir, "deacon-features-entrypoint.sh")
		if err := os.WriteFile(scriptPath, []byte(plan.EntrypointScript), 0o755); err != nil {
			return "", coreerrors.Internal("writing feature entrypoint script", err)
		}
		dockerfile += "COPY deacon-features-entrypoint.sh /tmp/deacon-features-entrypoint.sh\n"
		dockerfile += "RUN sh /tmp/deacon-features-entrypoint.sh\n"
	}
	if err := os.WriteFile(filepath.Join(buildDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return "", coreerrors.Internal("writing feature Dockerfile", err)
	}

	derivedTag := fmt.Sprintf("%s%s:%s", common.DerivedImagePrefix, res.ID, truncateHash(res.Hash))
	if err := cli.BuildImage(ctx, docker.BuildOptions{
		Tag:     derivedTag,
		Context: buildDir,
		Stdout:  verboseWriter(),
		Stderr:  verboseWriter(),
	}); err != nil {
		return "", coreerrors.DockerCliError("build derived feature image", err)
	}

	for _, f := range plan.Features {
		if f.Digest == "" {
			continue
		}
		lock.Set(f.Ref.CanonicalID(), lockfile.LockedFeature{
			Resolved:  f.Ref.CanonicalID() + "@" + f.Digest,
			Integrity: f.Digest,
		})
	}
	_ = lock.Save(res.ConfigPath)

	return derivedTag, nil
}

// runLifecycle runs every eligible phase against containerID and persists
// markers under a per-container directory in the OS temp dir.
func runLifecycle(ctx context.Context, cli *docker.Client, containerID string, cfg *config.Config, mode lifecycle.Mode, contentChanged bool) error {
	markersDir := filepath.Join(os.TempDir(), "deacon-markers", containerID)
	if err := os.MkdirAll(markersDir, 0o755); err != nil {
		return coreerrors.Internal("creating lifecycle marker directory", err)
	}

	orch := &lifecycle.Orchestrator{
		Runner:  docker.NewLifecycleRunner(cli, containerID, effectiveUser(cfg)),
		Markers: lifecycle.NewMarkerStore(markersDir),
	}

	_, err := orch.Run(ctx, mode, contentChanged, aggregatePhaseCommands(cfg), lifecycle.SkipFlags{
		SkipPostCreate:        upSkipPostCreate,
		SkipNonBlockingPhases: upSkipNonBlocking,
	})
	return err
}

type lockfileProvider struct {
	lock *lockfile.Lockfile
}

func (p lockfileProvider) Get(canonicalID string) (string, bool) {
	entry, ok := p.lock.Get(canonicalID)
	if !ok {
		return "", false
	}
	return entry.Integrity, true
}

func effectiveUser(cfg *config.Config) string {
	if cfg.RemoteUser != "" {
		return cfg.RemoteUser
	}
	return cfg.ContainerUser
}

func containerWorkspaceFolder(cfg *config.Config, workspacePath string) string {
	if cfg.WorkspaceFolder != "" {
		return cfg.WorkspaceFolder
	}
	return "/workspaces/" + filepath.Base(workspacePath)
}

func envList(cfg *config.Config) []string {
	var out []string
	cfg.ContainerEnv.Range(func(k, v string) bool {
		out = append(out, k+"="+v)
		return true
	})
	cfg.RemoteEnv.Range(func(k string, v *string) bool {
		if v != nil {
			out = append(out, k+"="+*v)
		}
		return true
	})
	return out
}

func mountList(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		out = append(out, m.String())
	}
	return out
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func truncateHash(h string) string {
	if len(h) <= common.HashTruncationLength {
		return h
	}
	return h[:common.HashTruncationLength]
}

// disallowedFeatureID extracts the feature id from a FeatureDisallowed
// error, or "" for any other error shape.
func disallowedFeatureID(err error) string {
	var coreErr *coreerrors.CoreError
	if errors.As(err, &coreErr) && coreErr.Code == coreerrors.CodeFeatureDisallowedFeature {
		return coreErr.Context["feature"]
	}
	return ""
}

func verboseWriter() io.Writer {
	if output.IsVerbose() {
		return os.Stdout
	}
	return nil
}
