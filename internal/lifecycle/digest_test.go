package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deacon-dev/deacon/internal/config"
)

func shellCmd(s string) config.LifecycleCommand {
	return config.LifecycleCommand{Shell: &s}
}

func TestDigest_DeterministicForEqualCommands(t *testing.T) {
	cmds := []config.AggregatedCommand{{Source: config.SourceConfig, Command: shellCmd("echo hi")}}
	a, err := Digest(cmds)
	require.NoError(t, err)
	b, err := Digest(cmds)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDigest_DiffersWhenCommandTextChanges(t *testing.T) {
	a, err := Digest([]config.AggregatedCommand{{Source: config.SourceConfig, Command: shellCmd("echo hi")}})
	require.NoError(t, err)
	b, err := Digest([]config.AggregatedCommand{{Source: config.SourceConfig, Command: shellCmd("echo bye")}})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDigest_EmptyPhaseIsStable(t *testing.T) {
	a, err := Digest(nil)
	require.NoError(t, err)
	b, err := Digest([]config.AggregatedCommand{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
