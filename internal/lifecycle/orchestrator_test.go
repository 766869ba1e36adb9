package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

func recordingRunner(t *testing.T) (Runner, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var calls []string
	runner := RunnerFunc(func(_ context.Context, source config.CommandSource, cmd config.LifecycleCommand) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, string(source)+":"+*cmd.Shell)
		return nil
	})
	return runner, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string{}, calls...)
	}
}

func phaseCommands(entries ...config.AggregatedCommand) map[Phase][]config.AggregatedCommand {
	m := map[Phase][]config.AggregatedCommand{}
	for _, p := range Order {
		m[p] = nil
	}
	m[OnCreate] = entries
	return m
}

func TestOrchestrator_RunsFeaturesBeforeConfigWithinAPhase(t *testing.T) {
	runner, calls := recordingRunner(t)
	o := &Orchestrator{Runner: runner, Markers: NewMarkerStore(t.TempDir())}

	cmds := phaseCommands(
		config.AggregatedCommand{Source: config.SourceFeature("go"), Command: shellCmd("feature-cmd")},
		config.AggregatedCommand{Source: config.SourceConfig, Command: shellCmd("config-cmd")},
	)

	out, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	require.NoError(t, err)
	assert.Contains(t, out.Ran, OnCreate)
	assert.Equal(t, []string{"Feature(go):feature-cmd", "Config:config-cmd"}, calls())
}

func TestOrchestrator_SkipsPhaseWhenMarkerMatchesDigest(t *testing.T) {
	runner, calls := recordingRunner(t)
	markers := NewMarkerStore(t.TempDir())
	o := &Orchestrator{Runner: runner, Markers: markers}

	cmds := phaseCommands(config.AggregatedCommand{Source: config.SourceConfig, Command: shellCmd("only-once")})

	_, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	require.NoError(t, err)
	require.Len(t, calls(), 1)

	out, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	require.NoError(t, err)
	assert.Contains(t, out.Skipped, OnCreate)
	assert.Len(t, calls(), 1, "second run must not re-invoke an already-satisfied phase")
}

func TestOrchestrator_ReRunsPhaseWhenDigestChanges(t *testing.T) {
	runner, calls := recordingRunner(t)
	markers := NewMarkerStore(t.TempDir())
	o := &Orchestrator{Runner: runner, Markers: markers}

	_, err := o.Run(context.Background(), ModeCreate, false, phaseCommands(config.AggregatedCommand{Source: config.SourceConfig, Command: shellCmd("v1")}), SkipFlags{})
	require.NoError(t, err)

	_, err = o.Run(context.Background(), ModeCreate, false, phaseCommands(config.AggregatedCommand{Source: config.SourceConfig, Command: shellCmd("v2")}), SkipFlags{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Config:v1", "Config:v2"}, calls())
}

func TestOrchestrator_PostStartAlwaysRunsDespiteMatchingMarker(t *testing.T) {
	runner, calls := recordingRunner(t)
	markers := NewMarkerStore(t.TempDir())
	o := &Orchestrator{Runner: runner, Markers: markers}

	cmds := map[Phase][]config.AggregatedCommand{}
	for _, p := range Order {
		cmds[p] = nil
	}
	cmds[PostStart] = []config.AggregatedCommand{{Source: config.SourceConfig, Command: shellCmd("start-hook")}}

	_, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	require.NoError(t, err)
	_, err = o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Config:start-hook", "Config:start-hook"}, calls(), "postStart must run on every invocation even with an up-to-date marker")
}

func TestOrchestrator_FailFastStopsRemainingPhases(t *testing.T) {
	boom := coreerrors.LifecycleCommandFailed("Config", string(OnCreate), 1, nil)
	runner := RunnerFunc(func(_ context.Context, _ config.CommandSource, _ config.LifecycleCommand) error {
		return boom
	})
	markers := NewMarkerStore(t.TempDir())
	o := &Orchestrator{Runner: runner, Markers: markers}

	cmds := phaseCommands(config.AggregatedCommand{Source: config.SourceConfig, Command: shellCmd("fails")})

	_, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	assert.ErrorIs(t, err, boom)

	_, ok, _ := markers.Read(OnCreate)
	assert.False(t, ok, "no marker must be written for a failing phase")
}

func TestOrchestrator_SkipFlagOmitsWithoutMarkingComplete(t *testing.T) {
	runner, calls := recordingRunner(t)
	markers := NewMarkerStore(t.TempDir())
	o := &Orchestrator{Runner: runner, Markers: markers}

	cmds := map[Phase][]config.AggregatedCommand{}
	for _, p := range Order {
		cmds[p] = nil
	}
	cmds[PostCreate] = []config.AggregatedCommand{{Source: config.SourceConfig, Command: shellCmd("post-create")}}

	out, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{SkipPostCreate: true})
	require.NoError(t, err)
	assert.Contains(t, out.Skipped, PostCreate)
	assert.Empty(t, calls())

	_, ok, _ := markers.Read(PostCreate)
	assert.False(t, ok, "a skipped phase must not be marked complete")
}

func TestOrchestrator_NamedGroupsRunConcurrentlyAndFailTogether(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	runner := RunnerFunc(func(_ context.Context, _ config.CommandSource, cmd config.LifecycleCommand) error {
		mu.Lock()
		calls = append(calls, *cmd.Shell)
		mu.Unlock()
		if *cmd.Shell == "group-b" {
			return assert.AnError
		}
		return nil
	})
	markers := NewMarkerStore(t.TempDir())
	o := &Orchestrator{Runner: runner, Markers: markers}

	groups := config.NewOrderedMap[config.LifecycleCommand]()
	groups.Set("a", shellCmd("group-a"))
	groups.Set("b", shellCmd("group-b"))

	cmds := phaseCommands(config.AggregatedCommand{
		Source:  config.SourceConfig,
		Command: config.LifecycleCommand{Groups: groups},
	})

	_, err := o.Run(context.Background(), ModeCreate, false, cmds, SkipFlags{})
	assert.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"group-a", "group-b"}, calls)
}
