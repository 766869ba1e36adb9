package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_DeterministicForEqualValues(t *testing.T) {
	a := BuildConfigSubset(&Config{Name: "demo", Image: "ubuntu:24.04"})
	b := BuildConfigSubset(&Config{Name: "demo", Image: "ubuntu:24.04"})

	h1, err := Hash(a)
	require.NoError(t, err)
	h2, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "sha256 hex digest should be 64 characters")
}

func TestHash_DiffersForDifferentValues(t *testing.T) {
	a := BuildConfigSubset(&Config{Name: "demo"})
	b := BuildConfigSubset(&Config{Name: "other"})

	h1, _ := Hash(a)
	h2, _ := Hash(b)
	assert.NotEqual(t, h1, h2)
}

func TestHashBytes_MatchesHashOfSameJSON(t *testing.T) {
	data, err := CanonicalJSON(map[string]string{"a": "b"})
	require.NoError(t, err)
	h, err := Hash(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, h, HashBytes(data))
}
