package oci

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_CachePathFor_IsStableAndDistinctPerDigest(t *testing.T) {
	c := NewClient(t.TempDir())

	a := c.cachePathFor("ghcr.io/org/feature:1", "sha256:aaa")
	b := c.cachePathFor("ghcr.io/org/feature:1", "sha256:aaa")
	assert.Equal(t, a, b, "same ref+digest must map to the same cache path")

	other := c.cachePathFor("ghcr.io/org/feature:1", "sha256:bbb")
	assert.NotEqual(t, a, other, "a different digest must produce a different cache path")
	assert.Equal(t, filepath.Dir(a), filepath.Dir(other))
}
