package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecer struct {
	output   string
	exitCode int
	err      error
	calls    int
}

func (f *fakeExecer) ExecOutput(_ context.Context, _ string, _ []string, _ string) (string, int, error) {
	f.calls++
	return f.output, f.exitCode, f.err
}

type memCache struct {
	store map[Key]map[string]string
}

func newMemCache() *memCache { return &memCache{store: map[Key]map[string]string{}} }

func (c *memCache) Get(key Key) (map[string]string, bool) {
	v, ok := c.store[key]
	return v, ok
}

func (c *memCache) Set(key Key, value map[string]string) {
	c.store[key] = value
}

func TestProbe_NoneModeSkipsExecAndReturnsEmpty(t *testing.T) {
	exec := &fakeExecer{}
	p := NewProber(exec, nil)

	env, err := p.Probe(context.Background(), "c1", None, "root")
	require.NoError(t, err)
	assert.Empty(t, env)
	assert.Equal(t, 0, exec.calls)
}

func TestProbe_ParsesKeyValueLinesAndDropsMalformed(t *testing.T) {
	exec := &fakeExecer{output: "FOO=bar\nBAZ=qux=extra\nMALFORMED\n=leadingequals\n"}
	p := NewProber(exec, nil)

	env, err := p.Probe(context.Background(), "c1", LoginShell, "root")
	require.NoError(t, err)
	assert.Equal(t, "bar", env["FOO"])
	assert.Equal(t, "qux=extra", env["BAZ"])
	_, hasMalformed := env["MALFORMED"]
	assert.False(t, hasMalformed)
}

func TestProbe_NonZeroExitIsError(t *testing.T) {
	exec := &fakeExecer{exitCode: 1}
	p := NewProber(exec, nil)

	_, err := p.Probe(context.Background(), "c1", LoginShell, "root")
	assert.Error(t, err)
}

func TestProbe_CachesAcrossCalls(t *testing.T) {
	exec := &fakeExecer{output: "FOO=bar\n"}
	cache := newMemCache()
	p := NewProber(exec, cache)

	_, err := p.Probe(context.Background(), "c1", LoginShell, "root")
	require.NoError(t, err)
	_, err = p.Probe(context.Background(), "c1", LoginShell, "root")
	require.NoError(t, err)

	assert.Equal(t, 1, exec.calls, "second probe for the same key must be served from cache")
}

func TestParseMode_UnrecognizedDefaultsToNone(t *testing.T) {
	assert.Equal(t, None, ParseMode("bogus"))
	assert.Equal(t, LoginShell, ParseMode("loginShell"))
}
