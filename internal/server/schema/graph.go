package schema

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Graph is a validated set of migrations: identifiers are unique, every
// dependency resolves and every node is well formed. Acyclicity and the
// single-leaf rule are checked by Plan.
type Graph struct {
	nodes map[Key]Migration
	// deps holds the de-duplicated dependency list of every node.
	deps       map[Key][]Key
	dependents map[Key][]Key
	keys       []Key
}

// NewGraph validates the node set. All problems found in one pass are
// returned together (errors.Join); match them with errors.Is.
func NewGraph(migrations []Migration) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[Key]Migration, len(migrations)),
		deps:       make(map[Key][]Key, len(migrations)),
		dependents: make(map[Key][]Key, len(migrations)),
	}

	var errs []error
	// invalid holds declared keys whose node failed validate; they count as
	// declared for duplicate and dependency checks.
	invalid := make(map[Key]struct{})
	for _, m := range migrations {
		k := m.Key()
		_, dupValid := g.nodes[k]
		_, dupInvalid := invalid[k]
		if dupValid || dupInvalid {
			errs = append(errs, fmt.Errorf("%w: %s is declared more than once", ErrDuplicateIdentifier, k))
			continue
		}
		if err := m.validate(); err != nil {
			errs = append(errs, err)
			invalid[k] = struct{}{}
			continue
		}
		g.nodes[k] = m
		g.keys = append(g.keys, k)
	}
	sort.Slice(g.keys, func(i, j int) bool { return less(g.keys[i], g.keys[j]) })

	for _, k := range g.keys {
		seen := make(map[Key]struct{})
		for _, d := range g.nodes[k].Dependencies {
			if _, ok := g.nodes[d]; !ok {
				if _, declared := invalid[d]; !declared {
					errs = append(errs, fmt.Errorf("%w: %s depends on %s, which does not exist", ErrUnknownDependency, k, d))
				}
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			g.deps[k] = append(g.deps[k], d)
			g.dependents[d] = append(g.dependents[d], k)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.keys)
}

// Get returns the migration stored under k.
func (g *Graph) Get(k Key) (Migration, bool) {
	m, ok := g.nodes[k]
	return m, ok
}

// Apps returns the sorted set of app namespaces.
func (g *Graph) Apps() []string {
	var apps []string
	for _, k := range g.keys {
		if len(apps) == 0 || apps[len(apps)-1] != k.App {
			apps = append(apps, k.App)
		}
	}
	return apps
}

// Dependents returns the nodes that depend directly on k, sorted.
func (g *Graph) Dependents(k Key) []Key {
	out := append([]Key(nil), g.dependents[k]...)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Leaves returns the nodes of app that no other node of the same app
// depends on, sorted. Cross-app dependents do not count.
func (g *Graph) Leaves(app string) []Key {
	var leaves []Key
	for _, k := range g.keys {
		if k.App != app {
			continue
		}
		leaf := true
		for _, d := range g.dependents[k] {
			if d.App == app {
				leaf = false
				break
			}
		}
		if leaf {
			leaves = append(leaves, k)
		}
	}
	return leaves
}

// Plan returns all migrations in an order where each one follows every
// migration it transitively depends on. Among nodes that are ready at the
// same time the smallest (app, name) goes first, so the plan is stable.
//
// It fails with ErrCycleDetected when the dependency relation has a cycle and
// with ErrUnresolvedFork when an app has more than one leaf.
func (g *Graph) Plan() ([]Migration, error) {
	indegree := make(map[Key]int, len(g.keys))
	ready := &keyHeap{}
	for _, k := range g.keys {
		indegree[k] = len(g.deps[k])
		if indegree[k] == 0 {
			heap.Push(ready, k)
		}
	}

	order := make([]Migration, 0, len(g.keys))
	for ready.Len() > 0 {
		k := heap.Pop(ready).(Key)
		order = append(order, g.nodes[k])
		for _, d := range g.dependents[k] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) < len(g.keys) {
		return nil, fmt.Errorf("%w: %s", ErrCycleDetected, formatPath(g.findCycle(indegree)))
	}

	var errs []error
	for _, app := range g.Apps() {
		if leaves := g.Leaves(app); len(leaves) > 1 {
			errs = append(errs, fmt.Errorf("%w: app %q has %d leaves (%s); author a merge migration depending on all of them",
				ErrUnresolvedFork, app, len(leaves), formatList(leaves)))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return order, nil
}

// findCycle walks the nodes Kahn's algorithm could not schedule (indegree
// still positive) and returns one cycle, first node repeated at the end.
func (g *Graph) findCycle(indegree map[Key]int) []Key {
	const (
		white = iota
		grey
		black
	)
	color := make(map[Key]int, len(g.keys))
	var stack []Key

	var visit func(k Key) []Key
	visit = func(k Key) []Key {
		color[k] = grey
		stack = append(stack, k)
		for _, d := range g.deps[k] {
			switch color[d] {
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == d {
						cycle := append([]Key(nil), stack[i:]...)
						return append(cycle, d)
					}
				}
			case white:
				if c := visit(d); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[k] = black
		return nil
	}

	for _, k := range g.keys {
		if indegree[k] > 0 && color[k] == white {
			if c := visit(k); c != nil {
				return c
			}
		}
	}
	return nil
}

// formatPath renders a dependency chain as "a/1 -> b/2 -> a/1".
func formatPath(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}

func formatList(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}

type keyHeap []Key

func (h keyHeap) Len() int           { return len(h) }
func (h keyHeap) Less(i, j int) bool { return less(h[i], h[j]) }
func (h keyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *keyHeap) Push(x any)        { *h = append(*h, x.(Key)) }
func (h *keyHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Resolve is NewGraph followed by Plan.
func Resolve(migrations []Migration) ([]Migration, error) {
	g, err := NewGraph(migrations)
	if err != nil {
		return nil, err
	}
	return g.Plan()
}
