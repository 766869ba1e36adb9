package labels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsSchemaDefaults(t *testing.T) {
	l := New()
	assert.Equal(t, SchemaVersion, l.SchemaVersion)
	assert.True(t, l.Managed)
	assert.Empty(t, l.FeaturesInstalled)
}

func TestToMapAndFromMap_RoundTrips(t *testing.T) {
	l := New()
	l.WorkspaceID = "ws-123"
	l.WorkspacePath = "/home/user/proj"
	l.ConfigPath = ".devcontainer/devcontainer.json"
	l.HashConfig = "abc"
	l.HashFeatures = "def"
	l.HashOverall = "ghi"
	l.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.CreatedBy = "deacon/0.1.0"
	l.LifecycleState = LifecycleStateReady
	l.FeaturesInstalled = []string{"ghcr.io/x/y:1", "ghcr.io/a/b:2"}
	l.ComposeProject = "proj"
	l.ComposeService = "app"
	l.IsPrimary = true

	m := l.ToMap()
	assert.Equal(t, "true", m[LabelManaged])
	assert.Equal(t, "ws-123", m[LabelWorkspaceID])

	restored := FromMap(m)
	assert.Equal(t, l.WorkspaceID, restored.WorkspaceID)
	assert.Equal(t, l.WorkspacePath, restored.WorkspacePath)
	assert.Equal(t, l.HashConfig, restored.HashConfig)
	assert.Equal(t, l.HashFeatures, restored.HashFeatures)
	assert.Equal(t, l.HashOverall, restored.HashOverall)
	assert.True(t, l.CreatedAt.Equal(restored.CreatedAt))
	assert.Equal(t, l.CreatedBy, restored.CreatedBy)
	assert.Equal(t, l.LifecycleState, restored.LifecycleState)
	assert.Equal(t, l.FeaturesInstalled, restored.FeaturesInstalled)
	assert.Equal(t, l.ComposeProject, restored.ComposeProject)
	assert.Equal(t, l.ComposeService, restored.ComposeService)
	assert.True(t, restored.IsPrimary)
}

func TestToMap_OmitsUnsetOptionalFields(t *testing.T) {
	l := New()
	m := l.ToMap()

	_, hasWorkspace := m[LabelWorkspaceID]
	assert.False(t, hasWorkspace)
	_, hasPrimary := m[LabelIsPrimary]
	assert.False(t, hasPrimary)
}

func TestParseMetadataLabel_AbsentReturnsNil(t *testing.T) {
	m, err := ParseMetadataLabel(map[string]string{})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestParseMetadataLabel_RoundTripsThroughMarshalValue(t *testing.T) {
	original := MetadataLabel{
		ConfigSubset: []byte(`{"name":"demo"}`),
		AppliedFeatures: []AppliedFeature{
			{ID: "ghcr.io/x/y", Version: "1.2.3", Options: map[string]interface{}{"version": "18"}},
		},
		LockfileHash: "sha256:deadbeef",
	}
	value, err := original.MarshalValue()
	require.NoError(t, err)

	parsed, err := ParseMetadataLabel(map[string]string{MetadataLabelKey: value})
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, original.LockfileHash, parsed.LockfileHash)
	assert.Len(t, parsed.AppliedFeatures, 1)
	assert.Equal(t, "ghcr.io/x/y", parsed.AppliedFeatures[0].ID)
}

func TestParseMetadataLabel_MalformedJSONErrors(t *testing.T) {
	_, err := ParseMetadataLabel(map[string]string{MetadataLabelKey: "not json"})
	assert.Error(t, err)
}

func TestRemoteEnvFromImageLabels_ExtractsAndStripsPrefix(t *testing.T) {
	imageLabels := map[string]string{
		"deacon.remoteEnv.FOO":  "bar",
		"deacon.remoteEnv.PATH": "/usr/local/bin",
		"devcontainer.metadata": "{}",
		"other.label":           "ignored",
	}
	got := RemoteEnvFromImageLabels(imageLabels)
	assert.Equal(t, map[string]string{"FOO": "bar", "PATH": "/usr/local/bin"}, got)
}

func TestRemoteEnvFromImageLabels_EmptySuffixIsIgnored(t *testing.T) {
	got := RemoteEnvFromImageLabels(map[string]string{"deacon.remoteEnv.": "x"})
	assert.Empty(t, got)
}
