package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_SetThenGet(t *testing.T) {
	d := NewDisk(t.TempDir())
	k := ProbeCacheKey{ContainerID: "c1"}

	require.NoError(t, d.Set(k, json.RawMessage(`{"FOO":"bar"}`), 0))
	raw, ok := d.Get(k)
	require.True(t, ok)
	assert.JSONEq(t, `{"FOO":"bar"}`, string(raw))
}

func TestDisk_MissingKeyIsMiss(t *testing.T) {
	d := NewDisk(t.TempDir())
	_, ok := d.Get(ProbeCacheKey{ContainerID: "nope"})
	assert.False(t, ok)
}

func TestDisk_ExpiredEntryIsEvictedOnAccess(t *testing.T) {
	d := NewDisk(t.TempDir())
	base := time.Unix(1000, 0)
	d.now = func() time.Time { return base }

	k := ProbeCacheKey{ContainerID: "c1"}
	require.NoError(t, d.Set(k, json.RawMessage(`1`), 10))

	d.now = func() time.Time { return base.Add(20 * time.Second) }
	_, ok := d.Get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len(), "an expired entry must be removed from disk on access")
}

func TestDisk_ZeroTTLNeverExpires(t *testing.T) {
	d := NewDisk(t.TempDir())
	base := time.Unix(1000, 0)
	d.now = func() time.Time { return base }

	k := ProbeCacheKey{ContainerID: "c1"}
	require.NoError(t, d.Set(k, json.RawMessage(`1`), 0))

	d.now = func() time.Time { return base.Add(1_000_000 * time.Second) }
	_, ok := d.Get(k)
	assert.True(t, ok)
}

func TestDisk_Clear(t *testing.T) {
	d := NewDisk(t.TempDir())
	require.NoError(t, d.Set(ProbeCacheKey{ContainerID: "a"}, json.RawMessage(`1`), 0))
	require.NoError(t, d.Set(ProbeCacheKey{ContainerID: "b"}, json.RawMessage(`1`), 0))
	assert.Equal(t, 2, d.Len())

	require.NoError(t, d.Clear())
	assert.Equal(t, 0, d.Len())
}
