package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/docker"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/labels"
	"github.com/deacon-dev/deacon/internal/output"
)

var execUser string

var execCmd = &cobra.Command{
	Use:                "exec -- <command> [args...]",
	Short:              "Run a command inside the running devcontainer",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: false,
	RunE:               runExec,
}

func init() {
	execCmd.Flags().StringVar(&execUser, "user", "", "user to run the command as (default: remoteUser)")
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exitCode, err := execInContainer(ctx, args)
	if err != nil {
		output.PrintError(err)
		return err
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func execInContainer(ctx context.Context, argv []string) (int, error) {
	resolution, err := resolveWorkspace(ctx)
	if err != nil {
		return -1, err
	}
	cfg := resolution.Config

	cli, err := docker.NewClient()
	if err != nil {
		return -1, coreerrors.DockerNotInstalled(err)
	}
	defer cli.Close()
	if err := cli.Ping(ctx); err != nil {
		return -1, coreerrors.DockerDaemonUnreachable(err)
	}

	mgr := labels.NewManager(cli.APIClient(), nil)
	primary, err := mgr.FindPrimaryContainer(ctx, resolution.ID)
	if err != nil {
		return -1, coreerrors.DockerCliError("find container", err)
	}
	if primary == nil {
		return -1, coreerrors.Internal("no running devcontainer found for this workspace; run `deacon up` first", nil)
	}

	user := execUser
	if user == "" {
		user = effectiveUser(cfg)
	}

	exitCode, err := cli.Exec(ctx, primary.ID, docker.ExecConfig{
		Cmd:    argv,
		User:   user,
		Tty:    true,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return -1, coreerrors.DockerCliError("exec", err)
	}
	return exitCode, nil
}
