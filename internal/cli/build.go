package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/compose"
	"github.com/deacon-dev/deacon/internal/docker"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/output"
)

var buildNoCache bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build (or rebuild) the devcontainer image without starting it",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "build without using the build cache")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := build(ctx); err != nil {
		output.PrintError(err)
		return err
	}
	output.Success("image built")
	return nil
}

func build(ctx context.Context) error {
	resolution, err := resolveWorkspace(ctx)
	if err != nil {
		return err
	}
	cfg := resolution.Config

	cli, err := docker.NewClient()
	if err != nil {
		return coreerrors.DockerNotInstalled(err)
	}
	defer cli.Close()
	if err := cli.Ping(ctx); err != nil {
		return coreerrors.DockerDaemonUnreachable(err)
	}

	if cfg.IsComposePlan() {
		runner, err := compose.NewRunner(resolution.Path, resolution.ID, resolution.ConfigPath, cfg, resolution.ID, resolution.Hash)
		if err != nil {
			return coreerrors.Internal("constructing compose runner", err)
		}
		defer runner.Cleanup()
		return runner.Build(ctx, compose.BuildOptions{NoCache: buildNoCache, Verbose: output.IsVerbose()})
	}

	_, err = resolveImage(ctx, resolution, cli)
	return err
}
