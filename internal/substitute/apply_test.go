package substitute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deacon-dev/deacon/internal/config"
)

func ctxFixture() Context {
	return Context{
		LocalWorkspaceFolder: "/home/dev/my-project",
		ContainerEnv:         map[string]string{"PATH": "/usr/bin"},
		LocalEnv: func(name string) (string, bool) {
			if name == "USER" {
				return "alice", true
			}
			return "", false
		},
	}
}

func TestApply_ResolvesWorkspaceAndEnvPlaceholders(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
		"name": "${localWorkspaceFolderBasename}",
		"remoteUser": "${localEnv:USER}",
		"containerEnv": {"MY_PATH": "${containerEnv:PATH}"}
	}`))
	require.NoError(t, err)

	out, report, err := Apply(cfg, ctxFixture())
	require.NoError(t, err)

	assert.Equal(t, "my-project", out.Name)
	assert.Equal(t, "alice", out.RemoteUser)

	v, ok := out.ContainerEnv.Get("MY_PATH")
	require.True(t, ok)
	assert.Equal(t, "/usr/bin", v)

	assert.Equal(t, "alice", report.Resolved["${localEnv:USER}"])
	assert.Empty(t, report.Unresolved)
}

func TestApply_UsesDefaultWhenEnvMissing(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"remoteUser": "${localEnv:MISSING_VAR:fallback}"}`))
	require.NoError(t, err)

	out, _, err := Apply(cfg, ctxFixture())
	require.NoError(t, err)
	assert.Equal(t, "fallback", out.RemoteUser)
}

func TestApply_RecordsUnresolvedPlaceholders(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"remoteUser": "${localEnv:MISSING_VAR}"}`))
	require.NoError(t, err)

	out, report, err := Apply(cfg, ctxFixture())
	require.NoError(t, err)
	assert.Equal(t, "${localEnv:MISSING_VAR}", out.RemoteUser)
	assert.Contains(t, report.Unresolved, "${localEnv:MISSING_VAR}")
}

func TestApply_UnknownPlaceholderLeftVerbatim(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"remoteUser": "${somethingUnrecognized}"}`))
	require.NoError(t, err)

	out, report, err := Apply(cfg, ctxFixture())
	require.NoError(t, err)
	assert.Equal(t, "${somethingUnrecognized}", out.RemoteUser)
	assert.Empty(t, report.Resolved)
}

func TestApply_IsReentrantAtMostOnce(t *testing.T) {
	// LocalWorkspaceFolder itself contains text that looks like a nested
	// token; the substituted output must not be re-scanned for further
	// placeholders.
	ctx := ctxFixture()
	ctx.LocalWorkspaceFolder = "/home/dev/${localEnv:USER}"

	cfg, err := config.Parse([]byte(`{"workspaceFolder": "${localWorkspaceFolder}"}`))
	require.NoError(t, err)

	out, _, err := Apply(cfg, ctx)
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/${localEnv:USER}", out.WorkspaceFolder)
}

func TestApply_PreservesFeatureDeclarationOrderThroughSubstitution(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
		"features": {
			"ghcr.io/b": {"version": "${localEnv:MISSING:1}"},
			"ghcr.io/a": {},
			"ghcr.io/c": {}
		}
	}`))
	require.NoError(t, err)

	out, _, err := Apply(cfg, ctxFixture())
	require.NoError(t, err)
	require.NotNil(t, out.Features)
	assert.Equal(t, []string{"ghcr.io/b", "ghcr.io/a", "ghcr.io/c"}, out.Features.Keys())
}

func TestApply_DerivesContainerWorkspaceFolderWhenUnset(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"initializeCommand": "${containerWorkspaceFolder}"}`))
	require.NoError(t, err)

	out, _, err := Apply(cfg, ctxFixture())
	require.NoError(t, err)
	require.NotNil(t, out.InitializeCommand.Shell)
	assert.Equal(t, "/workspaces/my-project", *out.InitializeCommand.Shell)
}

func TestDetermineContainerWorkspaceFolder_ComposeDefaultsToRoot(t *testing.T) {
	cfg := &config.Config{DockerComposeFile: "docker-compose.yml"}
	assert.Equal(t, "/", DetermineContainerWorkspaceFolder(cfg, "/home/dev/proj"))
}

func TestDetermineContainerWorkspaceFolder_RespectsDeclaredValue(t *testing.T) {
	cfg := &config.Config{WorkspaceFolder: "/custom"}
	assert.Equal(t, "/custom", DetermineContainerWorkspaceFolder(cfg, "/home/dev/proj"))
}
