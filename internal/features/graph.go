package features

import (
	"sort"
	"strings"

	"github.com/heimdalr/dag"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// graph tracks dependency edges alongside a heimdalr/dag instance; the dag
// gives us cycle rejection on AddEdge, while the parallel adjacency maps let
// installOrder() apply the spec's exact tiebreak, which the library has no
// notion of.
type graph struct {
	d            *dag.DAG
	nodes        map[string]*Feature
	dependencies map[string]map[string]bool // id -> set of ids it depends on (hard, dependsOn)
	order        map[string]int             // insertion order in the effective config, for tiebreaking
}

func newGraph() *graph {
	return &graph{
		d:            dag.NewDAG(),
		nodes:        map[string]*Feature{},
		dependencies: map[string]map[string]bool{},
		order:        map[string]int{},
	}
}

func (g *graph) addNode(f *Feature) error {
	id := f.Ref.CanonicalID()
	if _, exists := g.nodes[id]; exists {
		return nil
	}
	if err := g.d.AddVertexByID(id, f); err != nil {
		return coreerrors.Internal("failed to add feature vertex", err)
	}
	g.nodes[id] = f
	g.dependencies[id] = map[string]bool{}
	g.order[id] = len(g.order)
	return nil
}

// addDependency records a hard dependsOn edge: from depends on on, i.e. on
// must be installed before from.
func (g *graph) addDependency(from, on string) error {
	if _, ok := g.nodes[on]; !ok {
		return nil
	}
	if err := g.d.AddEdge(on, from); err != nil {
		return coreerrors.FeatureCyclicDependency([]string{on, from})
	}
	g.dependencies[from][on] = true
	return nil
}

// addSoftOrdering records an installsAfter constraint: from should install
// after on, but ONLY if on is already present in the graph for some other
// reason. Unlike addDependency this never introduces on if it's absent.
func (g *graph) addSoftOrdering(from, on string) error {
	if _, ok := g.nodes[on]; !ok {
		return nil
	}
	if _, ok := g.nodes[from]; !ok {
		return nil
	}
	if err := g.d.AddEdge(on, from); err != nil {
		return coreerrors.FeatureCyclicDependency([]string{on, from})
	}
	g.dependencies[from][on] = true
	return nil
}

// installOrder computes a concrete install order via Kahn's algorithm. Ties among
// simultaneously-ready nodes are broken, in priority order, by:
//  1. user-declared features before auto-introduced dependency features
//  2. declaration/insertion order in the effective config
//  3. canonical id, ascending
func (g *graph) installOrder() ([]*Feature, error) {
	inDegree := map[string]int{}
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for id, deps := range g.dependencies {
		inDegree[id] = len(deps)
	}
	// dependents[on] = set of ids waiting on "on"
	dependents := map[string][]string{}
	for id, deps := range g.dependencies {
		for dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := make([]string, 0, len(g.nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	result := make([]*Feature, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return g.less(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		result = append(result, g.nodes[next])

		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, coreerrors.FeatureCyclicDependency(g.remainingIDs(result))
	}
	return result, nil
}

func (g *graph) less(a, b string) bool {
	fa, fb := g.nodes[a], g.nodes[b]
	if fa.UserDeclared != fb.UserDeclared {
		return fa.UserDeclared
	}
	if g.order[a] != g.order[b] {
		return g.order[a] < g.order[b]
	}
	return strings.Compare(a, b) < 0
}

func (g *graph) remainingIDs(resolved []*Feature) []string {
	done := map[string]bool{}
	for _, f := range resolved {
		done[f.Ref.CanonicalID()] = true
	}
	var remaining []string
	for id := range g.nodes {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}
