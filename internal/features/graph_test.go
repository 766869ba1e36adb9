package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRef(t *testing.T, raw string) *FeatureRef {
	t.Helper()
	ref, err := ParseFeatureRef(raw)
	require.NoError(t, err)
	return ref
}

func TestGraph_Less_UserDeclaredWinsOverInsertionOrderAlone(t *testing.T) {
	g := newGraph()
	auto := &Feature{Ref: mustRef(t, "./auto"), UserDeclared: false}
	declared := &Feature{Ref: mustRef(t, "./declared"), UserDeclared: true}

	require.NoError(t, g.addNode(auto))     // inserted first
	require.NoError(t, g.addNode(declared)) // inserted second

	assert.True(t, g.less("./declared", "./auto"), "a user-declared node must sort before an auto-introduced one even when inserted later")
}

func TestGraph_Less_FallsBackToIDWhenDeclaredStatusAndOrderTie(t *testing.T) {
	g := newGraph()
	a := &Feature{Ref: mustRef(t, "./a"), UserDeclared: true}
	b := &Feature{Ref: mustRef(t, "./b"), UserDeclared: true}
	g.order["./a"] = 0
	g.order["./b"] = 0
	g.nodes["./a"] = a
	g.nodes["./b"] = b

	assert.True(t, g.less("./a", "./b"))
	assert.False(t, g.less("./b", "./a"))
}

func TestGraph_AddDependency_RejectsCycleAcrossDependencies(t *testing.T) {
	g := newGraph()
	a := &Feature{Ref: mustRef(t, "./a"), UserDeclared: true}
	b := &Feature{Ref: mustRef(t, "./b"), UserDeclared: true}
	require.NoError(t, g.addNode(a))
	require.NoError(t, g.addNode(b))
	require.NoError(t, g.addDependency("./a", "./b"))

	err := g.addDependency("./b", "./a")
	assert.Error(t, err, "adding the reverse edge must be rejected as a cycle")
}
