package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_Build_PopulatesIdentityAndHashes(t *testing.T) {
	m := NewManager(nil, nil)
	l := m.Build(BuildOptions{
		WorkspaceID:       "ws-1",
		WorkspacePath:     "/ws",
		ConfigPath:        ".devcontainer/devcontainer.json",
		CreatedBy:         "deacon/test",
		HashConfig:        "c",
		HashFeatures:      "f",
		HashOverall:       "o",
		FeaturesInstalled: []string{"ghcr.io/x/y:1"},
		IsPrimary:         true,
	})

	assert.Equal(t, "ws-1", l.WorkspaceID)
	assert.Equal(t, LifecycleStateCreated, l.LifecycleState)
	assert.False(t, l.CreatedAt.IsZero())
	assert.Equal(t, []string{"ghcr.io/x/y:1"}, l.FeaturesInstalled)
	assert.True(t, l.IsPrimary)
}
