package calcgrid

import (
	"fmt"
	"sync"

	"github.com/vk/calcgrid/internal/dag"
)

// NodeKind distinguishes the kinds of nodes a graph can hold.
type NodeKind int

const (
	// DataNode holds, or is expected to hold, an externally supplied value.
	DataNode NodeKind = iota
	// StepNode derives its value by invoking a recipe on its dependencies.
	StepNode
	// ConditionalNode takes the value of one of its possibilities, selected
	// by the first of its conditions that evaluates to true.
	ConditionalNode
)

func (k NodeKind) String() string {
	switch k {
	case DataNode:
		return "data"
	case StepNode:
		return "step"
	case ConditionalNode:
		return "conditional"
	default:
		return fmt.Sprintf("unknown node kind %d", int(k))
	}
}

// nodeDef describes a single node. Definitions are immutable once created;
// builder operations replace a node's definition rather than mutating it, so
// snapshots can share pointers safely.
type nodeDef struct {
	name          string
	kind          NodeKind
	recipe        string   // step nodes only
	deps          []string // step nodes: recipe arguments, in declared order
	conditions    []string // conditional nodes only
	possibilities []string // conditional nodes only
}

// dependencies returns every node name this definition references, in
// declared order.
func (n *nodeDef) dependencies() []string {
	switch n.kind {
	case StepNode:
		return n.deps
	case ConditionalNode:
		out := make([]string, 0, len(n.conditions)+len(n.possibilities))
		out = append(out, n.conditions...)
		out = append(out, n.possibilities...)
		return out
	default:
		return nil
	}
}

// Graph is an owned DAG of named nodes plus the recipe-binding table used to
// execute its steps. It is built incrementally via the builder operations and
// becomes executable once Finalize validates it. Builder operations take the
// write lock; execution works on a read-locked snapshot, so concurrent
// executions against a stable, finalized graph are safe.
type Graph struct {
	mu       sync.RWMutex
	name     string
	nodes    map[string]*nodeDef
	order    []string // node names in creation order, for deterministic iteration
	recipes  map[string]any
	defaults Context

	// epoch increments on every mutation; finalized records the epoch that
	// last passed Finalize. They match only when the current definition is
	// known to be valid.
	epoch     uint64
	finalized uint64
}

// New creates an empty graph with the given name.
func New(name string) *Graph {
	return &Graph{
		name:     name,
		nodes:    make(map[string]*nodeDef),
		recipes:  make(map[string]any),
		defaults: make(Context),
		epoch:    1,
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// Nodes returns all node names in creation order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Kind returns the kind of the named node.
func (g *Graph) Kind(name string) (NodeKind, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return 0, &UnknownNodeError{Node: name}
	}
	return n.kind, nil
}

// Recipe returns the recipe name bound to the named step node. Non-step
// nodes return an empty string.
func (g *Graph) Recipe(name string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return "", &UnknownNodeError{Node: name}
	}
	return n.recipe, nil
}

// Dependencies returns the names of every node the named node references, in
// declared order: recipe arguments for a step, conditions followed by
// possibilities for a conditional, nothing for a data node.
func (g *Graph) Dependencies(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return nil, &UnknownNodeError{Node: name}
	}
	deps := n.dependencies()
	out := make([]string, len(deps))
	copy(out, deps)
	return out, nil
}

// Conditions returns the condition node names of the named conditional node.
func (g *Graph) Conditions(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return nil, &UnknownNodeError{Node: name}
	}
	out := make([]string, len(n.conditions))
	copy(out, n.conditions)
	return out, nil
}

// Possibilities returns the possibility node names of the named conditional node.
func (g *Graph) Possibilities(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return nil, &UnknownNodeError{Node: name}
	}
	out := make([]string, len(n.possibilities))
	copy(out, n.possibilities)
	return out, nil
}

// Recipes returns the names currently bound in the recipe table, in no
// particular order.
func (g *Graph) Recipes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.recipes))
	for name := range g.recipes {
		out = append(out, name)
	}
	return out
}

// Defaults returns a copy of the graph-level default values. Defaults sit
// beneath the caller's context during execution.
func (g *Graph) Defaults() Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.defaults.Clone()
}

// IsFinalized reports whether the current definition has passed Finalize.
func (g *Graph) IsFinalized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.finalized == g.epoch
}

// Generations groups node names into topological generations: generation 0
// holds nodes with no dependencies. The graph must be acyclic.
func (g *Graph) Generations() ([][]string, error) {
	g.mu.RLock()
	topology := g.topologyLocked()
	g.mu.RUnlock()
	return topology.TopologicalGenerations()
}

// topologyLocked projects the node table onto a dag.Graph. Dangling
// dependency names are skipped; Finalize reports them separately. Callers
// must hold at least the read lock.
func (g *Graph) topologyLocked() *dag.Graph {
	topology := dag.New()
	for _, name := range g.order {
		topology.AddNode(name)
	}
	for _, name := range g.order {
		for _, dep := range g.nodes[name].dependencies() {
			if dep == name {
				continue
			}
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			// Both endpoints exist, so AddEdge cannot fail here.
			_ = topology.AddEdge(dep, name)
		}
	}
	return topology
}

// snapshot captures an immutable view of a finalized graph for execution.
type snapshot struct {
	name     string
	nodes    map[string]*nodeDef
	order    []string
	recipes  map[string]any
	defaults Context
}

// snapshot returns the current definition if it is finalized. The returned
// view shares node definitions with the graph, which is safe because
// definitions are never mutated in place.
func (g *Graph) snapshot() (*snapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.finalized != g.epoch {
		return nil, ErrNotFinalized
	}

	s := &snapshot{
		name:     g.name,
		nodes:    make(map[string]*nodeDef, len(g.nodes)),
		order:    make([]string, len(g.order)),
		recipes:  make(map[string]any, len(g.recipes)),
		defaults: g.defaults.Clone(),
	}
	for name, n := range g.nodes {
		s.nodes[name] = n
	}
	copy(s.order, g.order)
	for name, fn := range g.recipes {
		s.recipes[name] = fn
	}
	return s, nil
}
