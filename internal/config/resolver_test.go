package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

func TestDiscover_PrefersDevcontainerDirJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".devcontainer"), 0o755))
	jsonPath := filepath.Join(dir, ".devcontainer", "devcontainer.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devcontainer.json"), []byte(`{}`), 0o644))

	found, err := Discover(dir, "")
	require.NoError(t, err)
	assert.Equal(t, jsonPath, found)
}

func TestDiscover_FallsBackToDotfile(t *testing.T) {
	dir := t.TempDir()
	dotfile := filepath.Join(dir, ".devcontainer.json")
	require.NoError(t, os.WriteFile(dotfile, []byte(`{}`), 0o644))

	found, err := Discover(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dotfile, found)
}

func TestDiscover_ExplicitPathBypassesAllowlist(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.jsonc")
	require.NoError(t, os.WriteFile(custom, []byte(`{}`), 0o644))

	found, err := Discover(dir, custom)
	require.NoError(t, err)
	assert.Equal(t, custom, found)
}

func TestDiscover_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir, "")
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CodeConfigFileNotFound, ce.Code)
}

func TestLoad_DiscoversAndParses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".devcontainer"), 0o755))
	path := filepath.Join(dir, ".devcontainer", "devcontainer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "demo"}`), 0o644))

	cfg, loadedFrom, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, path, loadedFrom)
	assert.Equal(t, "demo", cfg.Name)
}
