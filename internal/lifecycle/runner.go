package lifecycle

import (
	"context"

	"github.com/deacon-dev/deacon/internal/config"
)

// Runner executes one lifecycle command, either on the host (initializeCommand)
// or inside the target container (every other phase). The implementation
// lives in internal/docker (LifecycleRunner), which knows how to exec into
// the container; this package only knows how to sequence and persist phase
// outcomes.
type Runner interface {
	Run(ctx context.Context, source config.CommandSource, cmd config.LifecycleCommand) error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, source config.CommandSource, cmd config.LifecycleCommand) error

func (f RunnerFunc) Run(ctx context.Context, source config.CommandSource, cmd config.LifecycleCommand) error {
	return f(ctx, source, cmd)
}
