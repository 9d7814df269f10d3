package uow

import (
	"github.com/forbearing/uow/types"
)

type color int

const (
	white color = iota // unvisited
	gray              // visiting
	black             // visited
)

// dependencyGraph holds the edges for one of the three independent
// dependency categories (insertion, update, deletion). An edge
// dependent -> dependency means "dependency must be processed first".
// order records each dependent's dependencies in the order they were
// registered, so traversal is reproducible across flush retries instead of
// following Go's randomized map iteration (spec §4.4 rule 1: stable order
// within an unconstrained layer).
type dependencyGraph struct {
	edges map[types.Model]map[types.Model]bool
	order map[types.Model][]types.Model
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		edges: make(map[types.Model]map[types.Model]bool),
		order: make(map[types.Model][]types.Model),
	}
}

func (g *dependencyGraph) addEdge(dependent, dependency types.Model) {
	if g.edges[dependent] == nil {
		g.edges[dependent] = make(map[types.Model]bool)
	}
	if g.edges[dependent][dependency] {
		return
	}
	g.edges[dependent][dependency] = true
	g.order[dependent] = append(g.order[dependent], dependency)
}

// removeHandle drops every edge that mentions handle, as either dependent
// or dependency.
func (g *dependencyGraph) removeHandle(handle types.Model) {
	delete(g.edges, handle)
	delete(g.order, handle)
	for dependent, deps := range g.edges {
		if !deps[handle] {
			continue
		}
		delete(deps, handle)
		order := g.order[dependent]
		for i, dep := range order {
			if dep == handle {
				g.order[dependent] = append(order[:i], order[i+1:]...)
				break
			}
		}
	}
}

// topoSort orders entities (in the order given) such that for every edge
// dependent -> dependency registered for an entity in the input set, the
// dependency appears before the dependent. Entities with no edges appear
// last, in their original relative order. Uses three-color DFS (spec
// §4.5); a gray node re-encountered reports CyclicDependency, a black node
// re-encountered is a benign shared-dependency revisit.
func (g *dependencyGraph) topoSort(entities []types.Model, labels func(types.Model) string) ([]types.Model, error) {
	inBatch := make(map[types.Model]bool, len(entities))
	hasEdges := make(map[types.Model]bool)
	for _, e := range entities {
		inBatch[e] = true
	}
	for dependent, deps := range g.edges {
		if !inBatch[dependent] {
			continue
		}
		for dep := range deps {
			if inBatch[dep] {
				hasEdges[dependent] = true
				hasEdges[dep] = true
			}
		}
	}

	colors := make(map[types.Model]color)
	var ordered []types.Model
	var path []types.Model

	var visit func(n types.Model) error
	visit = func(n types.Model) error {
		switch colors[n] {
		case black:
			return nil
		case gray:
			cyclePath := make([]string, 0, len(path)+1)
			start := 0
			for i, p := range path {
				if p == n {
					start = i
					break
				}
			}
			for _, p := range path[start:] {
				cyclePath = append(cyclePath, labels(p))
			}
			cyclePath = append(cyclePath, labels(n))
			// Best-effort partial ordering: every entity this DFS had fully
			// placed before re-encountering n is a valid prefix of a
			// topological order of the acyclic portion of the batch.
			partial := make([]string, len(ordered))
			for i, o := range ordered {
				partial[i] = labels(o)
			}
			return newCyclicDependency(cyclePath, partial)
		}
		colors[n] = gray
		path = append(path, n)
		for _, dep := range g.order[n] {
			if !inBatch[dep] {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		colors[n] = black
		ordered = append(ordered, n)
		return nil
	}

	for _, e := range entities {
		if !hasEdges[e] {
			continue
		}
		if colors[e] != black {
			if err := visit(e); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range entities {
		if !hasEdges[e] {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}
