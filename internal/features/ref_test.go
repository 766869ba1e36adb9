package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeatureRef_OCI_DefaultsToGHCR(t *testing.T) {
	ref, err := ParseFeatureRef("devcontainers/features/go:1")
	require.NoError(t, err)
	assert.Equal(t, RefOCI, ref.Type)
	assert.Equal(t, "ghcr.io", ref.Registry)
	assert.Equal(t, "devcontainers/features/go", ref.Path)
	assert.Equal(t, "1", ref.Tag)
	assert.Equal(t, "ghcr.io/devcontainers/features/go", ref.CanonicalID())
}

func TestParseFeatureRef_OCI_ExplicitRegistryAndPort(t *testing.T) {
	ref, err := ParseFeatureRef("registry.example.com:5000/org/feature:2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com:5000", ref.Registry)
	assert.Equal(t, "org/feature", ref.Path)
	assert.Equal(t, "2.0.0", ref.Tag)
}

func TestParseFeatureRef_OCI_DigestPinnedIsAuthoritative(t *testing.T) {
	ref, err := ParseFeatureRef("ghcr.io/org/feature@sha256:" + sha("abc"))
	require.NoError(t, err)
	assert.Equal(t, "", ref.Tag)
	assert.NotEmpty(t, ref.Digest)
	assert.Equal(t, "ghcr.io/org/feature", ref.CanonicalID())
}

func TestParseFeatureRef_LocalPath(t *testing.T) {
	for _, raw := range []string{"./my-feature", "../sibling/feature", "/abs/feature"} {
		ref, err := ParseFeatureRef(raw)
		require.NoError(t, err)
		assert.Equal(t, RefLocal, ref.Type)
		assert.Equal(t, raw, ref.CanonicalID())
	}
}

func TestParseFeatureRef_HTTPS(t *testing.T) {
	ref, err := ParseFeatureRef("https://example.com/feature.tgz")
	require.NoError(t, err)
	assert.Equal(t, RefHTTP, ref.Type)
}

func TestParseFeatureRef_RejectsBlank(t *testing.T) {
	_, err := ParseFeatureRef("   ")
	assert.Error(t, err)
}

func TestFeatureRef_String_RoundTripsVersionQualifier(t *testing.T) {
	ref, err := ParseFeatureRef("ghcr.io/org/feature:3")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/org/feature:3", ref.String())
}

func sha(s string) string {
	// not a real digest, just enough distinct hex-ish text for the test
	return "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"[:64]
}
