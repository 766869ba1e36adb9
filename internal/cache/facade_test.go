package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facadeValue struct {
	Name string `json:"name"`
}

func TestFacade_SetThenGet(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	k := FeatureCacheKey{Reference: "ghcr.io/x", Digest: "sha256:1"}

	require.NoError(t, f.Set(k, facadeValue{Name: "go"}, 0))

	var out facadeValue
	ok := f.Get(k, &out)
	require.True(t, ok)
	assert.Equal(t, "go", out.Name)
}

func TestFacade_MissIncrementsMissCounter(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	var out facadeValue
	ok := f.Get(k1(), &out)
	assert.False(t, ok)

	stats := f.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestFacade_DiskHitRepopulatesMemory(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	k := k1()
	require.NoError(t, f.Set(k, facadeValue{Name: "go"}, 0))

	// Evict straight from memory, leaving only the disk tier populated.
	f.mem.Remove(k)
	_, ok := f.mem.Get(k)
	require.False(t, ok, "precondition: memory tier must be empty")

	var out facadeValue
	ok = f.Get(k, &out)
	require.True(t, ok)

	_, ok = f.mem.Get(k)
	assert.True(t, ok, "a disk hit should repopulate the memory tier")
}

func TestFacade_RemoveClearsBothTiers(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	k := k1()
	require.NoError(t, f.Set(k, facadeValue{Name: "go"}, 0))

	require.NoError(t, f.Remove(k))

	var out facadeValue
	assert.False(t, f.Get(k, &out))
}

func TestFacade_ClearEmptiesBothTiers(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	require.NoError(t, f.Set(k1(), facadeValue{Name: "a"}, 0))
	require.NoError(t, f.Set(k2(), facadeValue{Name: "b"}, 0))
	assert.Equal(t, 2, f.Len())

	require.NoError(t, f.Clear())
	assert.Equal(t, 0, f.Len())
}

func TestFacade_HitRateComputation(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	require.NoError(t, f.Set(k1(), facadeValue{Name: "a"}, 0))

	var out facadeValue
	f.Get(k1(), &out) // hit
	f.Get(k2(), &out) // miss

	stats := f.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.0001)
}

func TestFacade_HitRateIsZeroWhenNeverQueried(t *testing.T) {
	f := NewFacade(8, t.TempDir())
	assert.Equal(t, float64(0), f.Stats().HitRate())
}

func k1() FeatureCacheKey { return FeatureCacheKey{Reference: "ghcr.io/x", Digest: "sha256:1"} }
func k2() FeatureCacheKey { return FeatureCacheKey{Reference: "ghcr.io/y", Digest: "sha256:2"} }
