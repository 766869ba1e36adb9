package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles_ParsesNameValuePairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("# a comment\n\nAPI_KEY=abc123\nDB_PASS=hunter2\n"), 0o600))

	store, warnings, err := LoadFiles([]string{path}, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	v, ok := store.Get("API_KEY")
	require.True(t, ok)
	assert.Equal(t, "abc123", string(v))

	v, ok = store.Get("DB_PASS")
	require.True(t, ok)
	assert.Equal(t, "hunter2", string(v))
}

func TestLoadFiles_LaterFileOverridesEarlier(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.env")
	second := filepath.Join(dir, "b.env")
	require.NoError(t, os.WriteFile(first, []byte("TOKEN=old\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("TOKEN=new\n"), 0o600))

	store, _, err := LoadFiles([]string{first, second}, nil)
	require.NoError(t, err)

	v, ok := store.Get("TOKEN")
	require.True(t, ok)
	assert.Equal(t, "new", string(v))
}

func TestLoadFiles_MissingFileIsWarningNotError(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.env")

	store, warnings, err := LoadFiles([]string{missing}, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Empty(t, store.Secrets())
}

func TestLoadFiles_MalformedLineIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pair\n"), 0o600))

	_, _, err := LoadFiles([]string{path}, nil)
	assert.Error(t, err)
}

func TestStore_AsEnvMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("A=1\nB=2\n"), 0o600))

	store, _, err := LoadFiles([]string{path}, nil)
	require.NoError(t, err)

	env := store.AsEnvMap()
	assert.Equal(t, "1", env["A"])
	assert.Equal(t, "2", env["B"])
}
