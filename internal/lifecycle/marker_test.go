package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerStore_ReadMissingIsNotAnError(t *testing.T) {
	s := NewMarkerStore(t.TempDir())
	_, ok, err := s.Read(OnCreate)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkerStore_WriteThenRead(t *testing.T) {
	s := NewMarkerStore(t.TempDir())
	require.NoError(t, s.Write(OnCreate, Marker{Digest: "abc", Success: true}))

	m, ok, err := s.Read(OnCreate)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", m.Digest)
	assert.True(t, m.Success)
}

func TestMarkerStore_CorruptedMarkerTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(OnCreate)+".json"), []byte("{not json"), 0o644))

	s := NewMarkerStore(dir)
	_, ok, err := s.Read(OnCreate)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkerStore_Reset(t *testing.T) {
	s := NewMarkerStore(t.TempDir())
	require.NoError(t, s.Write(OnCreate, Marker{Digest: "x", Success: true}))
	require.NoError(t, s.Reset(OnCreate))

	_, ok, _ := s.Read(OnCreate)
	assert.False(t, ok)
}

func TestMarkerStore_EarliestIncomplete(t *testing.T) {
	s := NewMarkerStore(t.TempDir())
	digests := map[Phase]string{}
	for _, p := range Order {
		digests[p] = string(p) + "-digest"
	}

	require.NoError(t, s.Write(OnCreate, Marker{Digest: digests[OnCreate], Success: true}))
	require.NoError(t, s.Write(UpdateContent, Marker{Digest: digests[UpdateContent], Success: true}))

	phase, ok := s.EarliestIncomplete(digests)
	require.True(t, ok)
	assert.Equal(t, PostCreate, phase)
}

func TestMarkerStore_EarliestIncomplete_DigestMismatchReopensPhase(t *testing.T) {
	s := NewMarkerStore(t.TempDir())
	require.NoError(t, s.Write(OnCreate, Marker{Digest: "stale", Success: true}))

	digests := map[Phase]string{OnCreate: "fresh"}
	phase, ok := s.EarliestIncomplete(digests)
	require.True(t, ok)
	assert.Equal(t, OnCreate, phase)
}
