package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeID_IsStableForSamePath(t *testing.T) {
	a := ComputeID("/home/dev/project")
	b := ComputeID("/home/dev/project")
	assert.Equal(t, a, b)
	assert.Len(t, a, idLength)
}

func TestComputeID_DiffersAcrossPaths(t *testing.T) {
	assert.NotEqual(t, ComputeID("/home/dev/project-a"), ComputeID("/home/dev/project-b"))
}

func TestComputeName_SanitizesDirectoryBasename(t *testing.T) {
	id := ComputeID("/home/dev/My Cool App")
	assert.Equal(t, "my_cool_app", ComputeName("/home/dev/My Cool App", id))
}

func TestComputeName_FallsBackToIDWhenBasenameSanitizesEmpty(t *testing.T) {
	id := ComputeID("/home/dev/$$$")
	assert.Equal(t, "workspace_"+id, ComputeName("/home/dev/$$$", id))
}

func TestResolve_LoadsMergesAndSubstitutesOnce(t *testing.T) {
	dir := t.TempDir()
	devcontainerDir := filepath.Join(dir, ".devcontainer")
	require.NoError(t, os.MkdirAll(devcontainerDir, 0o755))
	configBody := `{
		"image": "ubuntu:22.04",
		"remoteUser": "vscode",
		"containerEnv": {"PROJECT_ROOT": "${localWorkspaceFolder}"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(devcontainerDir, "devcontainer.json"), []byte(configBody), 0o644))

	res, err := Resolve(context.Background(), ResolveOptions{WorkspacePath: dir})
	require.NoError(t, err)

	assert.Equal(t, dir, res.Path)
	assert.Equal(t, "ubuntu:22.04", res.Config.Image)
	v, ok := res.Config.ContainerEnv.Get("PROJECT_ROOT")
	require.True(t, ok)
	assert.Equal(t, dir, v)
	assert.NotEmpty(t, res.Hash)
	assert.Len(t, res.ID, idLength)
}

func TestResolve_MissingWorkspacePathIsError(t *testing.T) {
	_, err := Resolve(context.Background(), ResolveOptions{})
	assert.Error(t, err)
}
