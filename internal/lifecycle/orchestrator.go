package lifecycle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// Orchestrator drives the fixed phase sequence against a Runner, persisting
// a marker per phase so repeat invocations skip unchanged work.
type Orchestrator struct {
	Runner  Runner
	Markers *MarkerStore
}

// Outcome reports what Run decided to do with each phase.
type Outcome struct {
	Ran     []Phase
	Skipped []Phase // already satisfied by an up-to-date marker, or omitted by a skip flag, or ineligible for this mode
}

// SkipFlags mirrors the CLI's skip_post_create/skip_non_blocking_commands
// switches: set phases are omitted entirely for this invocation without
// marking them complete, so a later invocation without the flag still runs
// them.
type SkipFlags struct {
	SkipPostCreate        bool
	SkipNonBlockingPhases bool // omits postStart and postAttach
}

func (f SkipFlags) omits(p Phase) bool {
	switch p {
	case PostCreate:
		return f.SkipPostCreate
	case PostStart, PostAttach:
		return f.SkipNonBlockingPhases
	default:
		return false
	}
}

// Run executes every eligible, non-skipped phase in Order, in sequence,
// stopping at the first command failure. commands supplies each phase's
// aggregated command list (features first, then config, each in
// declaration order) — building that list is the caller's job, since it
// requires feature-resolution context this package doesn't have.
func (o *Orchestrator) Run(ctx context.Context, mode Mode, contentChanged bool, commands map[Phase][]config.AggregatedCommand, skip SkipFlags) (Outcome, error) {
	var out Outcome

	for _, p := range Order {
		select {
		case <-ctx.Done():
			return out, coreerrors.Cancelled("lifecycle orchestrator cancelled")
		default:
		}

		if !eligible(p, mode, contentChanged) {
			out.Skipped = append(out.Skipped, p)
			continue
		}
		if skip.omits(p) {
			out.Skipped = append(out.Skipped, p)
			continue
		}

		phaseCommands := commands[p]
		digest, err := Digest(phaseCommands)
		if err != nil {
			return out, coreerrors.Internal("failed to compute phase digest", err)
		}

		if !alwaysRuns(p) {
			if marker, ok, _ := o.Markers.Read(p); ok && marker.Success && marker.Digest == digest {
				out.Skipped = append(out.Skipped, p)
				continue
			}
		}

		if err := o.runPhase(ctx, phaseCommands); err != nil {
			return out, err
		}

		if err := o.Markers.Write(p, Marker{Digest: digest, Success: true}); err != nil {
			return out, coreerrors.Internal("failed to persist phase marker", err)
		}
		out.Ran = append(out.Ran, p)
	}

	return out, nil
}

// runPhase runs a phase's slots in declaration order; a slot shaped as
// named groups runs its groups concurrently and fails iff any group fails.
func (o *Orchestrator) runPhase(ctx context.Context, slots []config.AggregatedCommand) error {
	for _, slot := range slots {
		if err := o.runSlot(ctx, slot.Source, slot.Command); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runSlot(ctx context.Context, source config.CommandSource, cmd config.LifecycleCommand) error {
	if cmd.IsEmpty() {
		return nil
	}
	if cmd.Groups == nil {
		return o.Runner.Run(ctx, source, cmd)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range cmd.Groups.Keys() {
		groupCmd, _ := cmd.Groups.Get(name)
		g.Go(func() error {
			return o.runSlot(gctx, source, groupCmd)
		})
	}
	return g.Wait()
}
