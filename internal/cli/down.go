package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/compose"
	"github.com/deacon-dev/deacon/internal/docker"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/labels"
	"github.com/deacon-dev/deacon/internal/output"
)

var (
	downRemoveVolumes bool
	downTimeout       int
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the devcontainer for the current workspace",
	RunE:  runDown,
}

func init() {
	downCmd.Flags().BoolVar(&downRemoveVolumes, "remove-volumes", false, "also remove anonymous volumes")
	downCmd.Flags().IntVar(&downTimeout, "timeout", 10, "seconds to wait for graceful stop before killing")
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := down(ctx); err != nil {
		output.PrintError(err)
		return err
	}
	output.Success("container removed")
	return nil
}

func down(ctx context.Context) error {
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
		runner := compose.NewRunnerFromEnvKey(resolution.Path, resolution.ID)
		return runner.Down(ctx, compose.DownOptions{
			RemoveVolumes: downRemoveVolumes,
			Verbose:       output.IsVerbose(),
		})
	}

	mgr := labels.NewManager(cli.APIClient(), nil)
	primary, err := mgr.FindPrimaryContainer(ctx, resolution.ID)
	if err != nil {
		return coreerrors.DockerCliError("find container", err)
	}
	if primary == nil {
		return nil
	}

	timeout := time.Duration(downTimeout) * time.Second
	_ = cli.StopContainer(ctx, primary.ID, &timeout)
	if err := cli.RemoveContainer(ctx, primary.ID, true, downRemoveVolumes); err != nil {
		return coreerrors.DockerCliError("remove container", err)
	}
	return nil
}
