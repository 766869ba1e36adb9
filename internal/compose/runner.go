// Package compose provides Docker Compose CLI integration.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/deacon-dev/deacon/internal/common"
	"github.com/deacon-dev/deacon/internal/config"
	"github.com/deacon-dev/deacon/internal/docker"
	"github.com/deacon-dev/deacon/internal/features"
	"github.com/deacon-dev/deacon/internal/workspace"
)

// Runner manages docker compose operations for a compose-based devcontainer.
type Runner struct {
	workspacePath  string
	workspaceID    string
	configPath     string
	configDir      string
	cfg            *config.Config
	envKey         string
	configHash     string
	composeProject   string
	composeFiles     []string
	overridePath     string
	derivedImage     string              // Derived image with features (if any)
	resolvedFeatures []*features.Feature // populated by buildDerivedImageWithFeatures
}

// NewRunner creates a new compose runner for cfg, which must already be
// substituted and merged (see internal/merge).
func NewRunner(workspacePath, workspaceID, configPath string, cfg *config.Config, envKey, configHash string) (*Runner, error) {
	configDir := filepath.Dir(configPath)

	composeFiles := cfg.GetDockerComposeFiles()
	resolved := make([]string, len(composeFiles))
	for i, f := range composeFiles {
		if filepath.IsAbs(f) {
			resolved[i] = f
		} else {
			resolved[i] = filepath.Join(configDir, f)
		}
	}

	return &Runner{
		workspacePath:  workspacePath,
		workspaceID:    workspaceID,
		configPath:     configPath,
		configDir:      configDir,
		cfg:            cfg,
		envKey:         envKey,
		configHash:     configHash,
		composeProject: "deacon_" + envKey,
		composeFiles:   resolved,
	}, nil
}

// NewRunnerFromEnvKey creates a runner for an existing environment, without a
// config (used for operations like down that only need the project name).
func NewRunnerFromEnvKey(workspacePath, envKey string) *Runner {
	return &Runner{
		workspacePath:  workspacePath,
		envKey:         envKey,
		composeProject: "deacon_" + envKey,
	}
}

func (r *Runner) writeOverrideToTempFile(content string) (string, error) {
	tmpFile, err := os.CreateTemp("", "deacon-override-*.yml")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to write override: %w", err)
	}

	tmpFile.Close()
	return tmpFile.Name(), nil
}

// UpOptions contains options for compose up.
type UpOptions struct {
	Build    bool
	Verbose  bool
	CacheDir string
}

// Up runs docker compose up with the generated override file.
func (r *Runner) Up(ctx context.Context, opts UpOptions) error {
	hasFeatures := r.cfg.Features != nil && r.cfg.Features.Len() > 0

	if hasFeatures {
		if err := r.buildDerivedImageWithFeatures(ctx, opts); err != nil {
			return fmt.Errorf("failed to build derived image with features: %w", err)
		}
	}

	override, err := r.generateOverride()
	if err != nil {
		return fmt.Errorf("failed to generate override: %w", err)
	}

	r.overridePath, err = r.writeOverrideToTempFile(override)
	if err != nil {
		return err
	}
	defer os.Remove(r.overridePath)

	args := r.composeBaseArgs()
	args = append(args, "up", "-d")

	// Add --build only if explicitly requested and we DON'T have features.
	// When we have features, we've already built the derived image
	// separately; --build would rebuild from the base Dockerfile and
	// overwrite our feature image. Non-primary services with build configs
	// are still built by compose automatically since they keep their image
	// override untouched.
	if opts.Build && !hasFeatures {
		args = append(args, "--build")
	}

	return r.runCompose(ctx, args, opts.Verbose)
}

// buildDerivedImageWithFeatures resolves the declared features and builds a
// derived image layering their install scripts on top of the primary
// service's base image.
func (r *Runner) buildDerivedImageWithFeatures(ctx context.Context, opts UpOptions) error {
	if opts.Verbose {
		fmt.Println("Building derived image with features...")
	}

	baseImage, err := r.getBaseImage(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to determine base image: %w", err)
	}

	if opts.Verbose {
		fmt.Printf("Base image: %s\n", baseImage)
	}

	plan, err := features.Resolve(ctx, r.cfg.Features, features.Options{
		ConfigDir: r.configDir,
		CacheDir:  opts.CacheDir,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve features: %w", err)
	}
	r.resolvedFeatures = plan.Features

	if opts.Verbose {
		fmt.Printf("Resolved %d features:\n", len(plan.Features))
		for _, f := range plan.Features {
			name := f.Ref.CanonicalID()
			if f.Metadata != nil && f.Metadata.Name != "" {
				name = f.Metadata.Name
			}
			fmt.Printf("  - %s\n", name)
		}
	}

	derivedTag := fmt.Sprintf("%s%s:%s", common.DerivedImagePrefix, r.envKey, truncate(r.configHash, common.HashTruncationLength))

	buildDir := filepath.Join(os.TempDir(), "deacon-features", r.envKey)
	defer os.RemoveAll(buildDir)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create feature build dir: %w", err)
	}

	dockerfile := fmt.Sprintf("FROM %s\n", baseImage)
	if plan.EntrypointScript != "" {
		scriptPath := filepath.Join(buildDir, "deacon-features-entrypoint.sh")
		if err := os.WriteFile(scriptPath, []byte(plan.EntrypointScript), 0o755); err != nil {
			return fmt.Errorf("failed to write feature entrypoint script: %w", err)
		}
		dockerfile += "COPY deacon-features-entrypoint.sh /tmp/deacon-features-entrypoint.sh\n"
		dockerfile += "RUN sh /tmp/deacon-features-entrypoint.sh\n"
	}
	if err := os.WriteFile(filepath.Join(buildDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return fmt.Errorf("failed to write feature Dockerfile: %w", err)
	}

	if opts.Verbose {
		fmt.Printf("Building derived image: %s\n", derivedTag)
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	var out io.Writer
	if opts.Verbose {
		out = os.Stdout
	}
	if err := cli.BuildImage(ctx, docker.BuildOptions{
		Tag:     derivedTag,
		Context: buildDir,
		Stdout:  out,
		Stderr:  out,
	}); err != nil {
		return err
	}

	r.derivedImage = derivedTag
	return nil
}

// getBaseImage determines the base image for the primary service.
func (r *Runner) getBaseImage(ctx context.Context, opts UpOptions) (string, error) {
	composeFile, err := ParseComposeFiles(r.composeFiles)
	if err != nil {
		return "", fmt.Errorf("failed to parse compose files: %w", err)
	}

	serviceName := r.cfg.Service
	if serviceName == "" {
		return "", fmt.Errorf("no primary service specified")
	}

	baseImage, err := composeFile.GetServiceBaseImage(serviceName)
	if err != nil {
		return "", err
	}
	if baseImage != "" {
		return baseImage, nil
	}

	if composeFile.HasBuild(serviceName) {
		if opts.Verbose {
			fmt.Println("Building base image from compose...")
		}

		buildArgs := r.composeBaseArgs()
		buildArgs = append(buildArgs, "build", serviceName)

		if err := r.runCompose(ctx, buildArgs, opts.Verbose); err != nil {
			return "", fmt.Errorf("failed to build service: %w", err)
		}

		// Compose names the built image <project>-<service>:latest (or
		// <project>_<service> on older compose versions).
		return fmt.Sprintf("%s-%s", r.composeProject, serviceName), nil
	}

	return "", fmt.Errorf("could not determine base image for service %q", serviceName)
}

// BuildOptions contains options for compose build.
type BuildOptions struct {
	NoCache bool
	Verbose bool
}

// Build builds images without starting containers.
func (r *Runner) Build(ctx context.Context, opts BuildOptions) error {
	if r.cfg != nil {
		override, err := r.generateOverride()
		if err != nil {
			return fmt.Errorf("failed to generate override: %w", err)
		}

		r.overridePath, err = r.writeOverrideToTempFile(override)
		if err != nil {
			return err
		}
		defer os.Remove(r.overridePath)
	}

	args := r.composeBaseArgs()
	args = append(args, "build")

	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	return r.runCompose(ctx, args, opts.Verbose)
}

// StartOptions contains options for compose start.
type StartOptions struct {
	Verbose bool
}

// Start starts existing containers.
func (r *Runner) Start(ctx context.Context, opts StartOptions) error {
	args := []string{"-p", r.composeProject, "start"}
	return r.runCompose(ctx, args, opts.Verbose)
}

// StopOptions contains options for compose stop.
type StopOptions struct {
	Verbose bool
}

// Stop stops running containers.
func (r *Runner) Stop(ctx context.Context, opts StopOptions) error {
	args := []string{"-p", r.composeProject, "stop"}
	return r.runCompose(ctx, args, opts.Verbose)
}

// DownOptions contains options for compose down.
type DownOptions struct {
	RemoveVolumes bool
	RemoveOrphans bool
	Verbose       bool
}

// Down stops and removes containers.
func (r *Runner) Down(ctx context.Context, opts DownOptions) error {
	args := []string{"-p", r.composeProject, "down"}

	if opts.RemoveVolumes {
		args = append(args, "-v")
	}
	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}

	return r.runCompose(ctx, args, opts.Verbose)
}

func (r *Runner) composeBaseArgs() []string {
	args := []string{"-p", r.composeProject}

	for _, f := range r.composeFiles {
		args = append(args, "-f", f)
	}
	if r.overridePath != "" {
		args = append(args, "-f", r.overridePath)
	}

	return args
}

func (r *Runner) runCompose(ctx context.Context, args []string, verbose bool) error {
	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	cmd.Dir = r.workspacePath

	var stdout, stderr bytes.Buffer
	if verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		if !verbose {
			return fmt.Errorf("compose failed: %w\nstderr: %s", err, stderr.String())
		}
		return fmt.Errorf("compose failed: %w", err)
	}

	return nil
}

func (r *Runner) generateOverride() (string, error) {
	gen := &overrideGenerator{
		cfg:              r.cfg,
		workspaceID:      r.workspaceID,
		envKey:           r.envKey,
		configHash:       r.configHash,
		composeProject:   r.composeProject,
		workspacePath:    r.workspacePath,
		derivedImage:     r.derivedImage,
		resolvedFeatures: r.resolvedFeatures,
	}
	return gen.Generate()
}

// GetContainerWorkspaceFolder returns the workspace folder path in the container.
func (r *Runner) GetContainerWorkspaceFolder() string {
	if r.cfg != nil && r.cfg.WorkspaceFolder != "" {
		return r.cfg.WorkspaceFolder
	}
	return "/workspaces/" + filepath.Base(r.workspacePath)
}

// GetPrimaryService returns the primary service name.
func (r *Runner) GetPrimaryService() string {
	if r.cfg != nil {
		return r.cfg.Service
	}
	return ""
}

// GetComposeProject returns the compose project name.
func (r *Runner) GetComposeProject() string {
	return r.composeProject
}

// Cleanup removes generated files.
func (r *Runner) Cleanup() error {
	if r.overridePath != "" {
		return os.Remove(r.overridePath)
	}
	return nil
}

// ComputeWorkspaceRootHash computes the stable workspace identifier from a
// workspace root path, delegating to workspace.ComputeID so compose project
// names and the workspace identity used by labels/CLI never diverge.
func ComputeWorkspaceRootHash(workspacePath string) string {
	return workspace.ComputeID(workspacePath)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
