package uow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forbearing/uow/types"
)

func labelByName(entities map[types.Model]string) func(types.Model) string {
	return func(m types.Model) string { return entities[m] }
}

func TestTopoSortOrdersDependencyBeforeDependent(t *testing.T) {
	order := newTestEntity("orders")
	item := newTestEntity("order_items")
	names := map[types.Model]string{order: "O", item: "I"}

	g := newDependencyGraph()
	g.addEdge(item, order) // I depends on O

	ordered, err := g.topoSort([]types.Model{order, item}, labelByName(names))
	require.NoError(t, err)
	require.Equal(t, []types.Model{order, item}, ordered)
}

func TestTopoSortNoEdgesPreservesOrder(t *testing.T) {
	a := newTestEntity("a")
	b := newTestEntity("b")
	ordered, err := newDependencyGraph().topoSort([]types.Model{a, b}, labelByName(nil))
	require.NoError(t, err)
	require.Equal(t, []types.Model{a, b}, ordered)
}

func TestTopoSortDetectsCycle(t *testing.T) {
	x := newTestEntity("x")
	y := newTestEntity("y")
	names := map[types.Model]string{x: "X", y: "Y"}

	g := newDependencyGraph()
	g.addEdge(x, y)
	g.addEdge(y, x)

	_, err := g.topoSort([]types.Model{x, y}, labelByName(names))
	require.Error(t, err)
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	require.Equal(t, []string{"X", "Y", "X"}, cyc.CyclePath)
}

// A dependent with multiple dependencies must order them by registration,
// not by Go's randomized map iteration, so repeated flushes of the same
// pending work are byte-for-byte reproducible (spec §4.4 rule 1).
func TestTopoSortStableWithinLayer(t *testing.T) {
	parent := newTestEntity("parent")
	a := newTestEntity("a")
	b := newTestEntity("b")
	c := newTestEntity("c")

	g := newDependencyGraph()
	g.addEdge(parent, a)
	g.addEdge(parent, b)
	g.addEdge(parent, c)

	var first []types.Model
	for i := 0; i < 20; i++ {
		ordered, err := g.topoSort([]types.Model{parent, a, b, c}, labelByName(nil))
		require.NoError(t, err)
		if i == 0 {
			first = ordered
			continue
		}
		require.Equal(t, first, ordered, "dependency order must be stable across repeated calls")
	}
	require.Equal(t, []types.Model{a, b, c, parent}, first)
}

func TestTopoSortRemoveHandleDropsEdges(t *testing.T) {
	x := newTestEntity("x")
	y := newTestEntity("y")
	g := newDependencyGraph()
	g.addEdge(x, y)
	g.removeHandle(y)

	ordered, err := g.topoSort([]types.Model{x}, labelByName(nil))
	require.NoError(t, err)
	require.Equal(t, []types.Model{x}, ordered)
}
