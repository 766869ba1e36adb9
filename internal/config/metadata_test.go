package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigSubset_ExtractsStaleDetectionFields(t *testing.T) {
	cfg := &Config{
		Name:            "demo",
		Image:           "ubuntu:24.04",
		WorkspaceFolder: "/workspace",
		RemoteUser:      "vscode",
		RunArgs:         []string{"--network=host"},
	}

	subset := BuildConfigSubset(cfg)
	assert.Equal(t, "demo", subset.Name)
	assert.Equal(t, "ubuntu:24.04", subset.Image)
	assert.Equal(t, "/workspace", subset.WorkspaceFolder)
	assert.Equal(t, "vscode", subset.RemoteUser)
	assert.Equal(t, []string{"--network=host"}, subset.RunArgs)
}

func TestMetadataLabel_RoundTrips(t *testing.T) {
	subset := BuildConfigSubset(&Config{Name: "demo"})
	subsetJSON, err := json.Marshal(subset)
	require.NoError(t, err)

	label := MetadataLabel{
		ConfigSubset: subsetJSON,
		AppliedFeatures: []AppliedFeature{
			{ID: "ghcr.io/devcontainers/features/go", Version: "1.2.3", Options: map[string]interface{}{"version": "latest"}},
		},
		LockfileHash: "deadbeef",
	}

	data, err := json.Marshal(label)
	require.NoError(t, err)

	var decoded MetadataLabel
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "deadbeef", decoded.LockfileHash)
	require.Len(t, decoded.AppliedFeatures, 1)
	assert.Equal(t, "ghcr.io/devcontainers/features/go", decoded.AppliedFeatures[0].ID)

	var decodedSubset ConfigSubset
	require.NoError(t, json.Unmarshal(decoded.ConfigSubset, &decodedSubset))
	assert.Equal(t, "demo", decodedSubset.Name)
}
