package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

func TestParse_StripsJSONCComments(t *testing.T) {
	data := []byte(`{
		// image to use
		"image": "ubuntu:24.04",
		"remoteUser": "vscode", // trailing comma below
	}`)

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "ubuntu:24.04", cfg.Image)
	assert.Equal(t, "vscode", cfg.RemoteUser)
}

func TestParse_RetainsUnknownTopLevelKeys(t *testing.T) {
	data := []byte(`{"image": "ubuntu:24.04", "futureField": {"nested": true}}`)

	cfg, err := Parse(data)
	require.NoError(t, err)
	require.Contains(t, cfg.UnknownKeys(), "futureField")
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "devcontainer.json"))
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.CodeConfigFileNotFound, ce.Code)
}

func TestParseFile_ReadsAndParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devcontainer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "demo"}`), 0o644))

	cfg, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Name)
}
