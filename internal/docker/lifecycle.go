package docker

import (
	"context"
	"os"

	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// LifecycleRunner execs a devcontainer lifecycle command inside a fixed
// container as a fixed user, satisfying lifecycle.Runner.
type LifecycleRunner struct {
	Client      *Client
	ContainerID string
	User        string
}

// NewLifecycleRunner returns a Runner that execs every command into
// containerID as user, streaming to the process's stdout/stderr.
func NewLifecycleRunner(client *Client, containerID, user string) *LifecycleRunner {
	return &LifecycleRunner{Client: client, ContainerID: containerID, User: user}
}

// Run implements lifecycle.Runner. A Groups command runs each named group
// sequentially; the spec's "concurrently" note applies to ordering within
// a phase, not to this single runner's serialized exec calls.
func (r *LifecycleRunner) Run(ctx context.Context, source config.CommandSource, cmd config.LifecycleCommand) error {
	if cmd.Groups != nil {
		var failed error
		cmd.Groups.Range(func(_ string, group config.LifecycleCommand) bool {
			if err := r.Run(ctx, source, group); err != nil {
				failed = err
				return false
			}
			return true
		})
		return failed
	}

	argv := commandArgv(cmd)
	if len(argv) == 0 {
		return nil
	}

	exitCode, err := r.Client.Exec(ctx, r.ContainerID, ExecConfig{
		Cmd:    argv,
		User:   r.User,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return coreerrors.LifecycleCommandFailed(string(source), "", -1, err)
	}
	if exitCode != 0 {
		return coreerrors.LifecycleCommandFailed(string(source), "", exitCode, nil)
	}
	return nil
}

func commandArgv(cmd config.LifecycleCommand) []string {
	if cmd.Shell != nil {
		return []string{"/bin/sh", "-c", *cmd.Shell}
	}
	if len(cmd.Argv) > 0 {
		return cmd.Argv
	}
	return nil
}
