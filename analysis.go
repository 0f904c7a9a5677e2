package calcgrid

import (
	"sort"
)

// Reachability classifies whether a node's value can be obtained from a
// given context without executing anything.
type Reachability int

const (
	// Unreachable means the value cannot be computed from the context.
	Unreachable Reachability = iota
	// Uncertain means computability depends on a conditional branch that can
	// only be decided at execution time.
	Uncertain
	// Reachable means the value is supplied or derivable from supplied values.
	Reachable
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "uncertain"
	}
}

// CheckReachability reports, for each target, whether its value could be
// obtained by executing the graph against the given context. Nothing is
// executed. The graph must be finalized.
func (g *Graph) CheckReachability(values Context, targets ...string) (map[string]Reachability, error) {
	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}

	working := s.workingContext(values)
	memo := make(map[string]Reachability, len(s.nodes))

	out := make(map[string]Reachability, len(targets))
	for _, target := range targets {
		if _, ok := s.nodes[target]; !ok {
			return nil, &UnknownNodeError{Node: target}
		}
		out[target] = s.reach(target, working, memo)
	}
	return out, nil
}

func (s *snapshot) reach(name string, values Context, memo map[string]Reachability) Reachability {
	if r, ok := memo[name]; ok {
		return r
	}
	// Guard against revisiting while in progress; the graph is acyclic after
	// Finalize, so this only matters for shared ancestors.
	memo[name] = Uncertain

	r := s.reachUncached(name, values, memo)
	memo[name] = r
	return r
}

func (s *snapshot) reachUncached(name string, values Context, memo map[string]Reachability) Reachability {
	if values.Has(name) {
		return Reachable
	}

	n := s.nodes[name]
	switch n.kind {
	case DataNode:
		return Unreachable

	case StepNode:
		worst := Reachable
		for _, dep := range n.deps {
			if r := s.reach(dep, values, memo); r < worst {
				worst = r
			}
		}
		return worst

	default: // ConditionalNode
		// A condition already true in the context pins the branch.
		for i, condition := range n.conditions {
			if !values.Has(condition) {
				continue
			}
			if truthy, err := asBool(values[condition]); err == nil && truthy {
				return s.reach(n.possibilities[i], values, memo)
			}
		}

		worst, best := Reachable, Unreachable
		for _, dep := range n.dependencies() {
			r := s.reach(dep, values, memo)
			if r < worst {
				worst = r
			}
			if r > best {
				best = r
			}
		}
		if worst == Reachable {
			return Reachable
		}
		if best == Unreachable {
			return Unreachable
		}
		// A condition that may still come true selects only its paired
		// possibility; if every such possibility is unreachable, so is the
		// conditional.
		viable := Unreachable
		for i, condition := range n.conditions {
			if s.reach(condition, values, memo) == Unreachable {
				continue
			}
			if r := s.reach(n.possibilities[i], values, memo); r > viable {
				viable = r
			}
		}
		if viable == Unreachable {
			return Unreachable
		}
		return Uncertain
	}
}

// PathToTarget returns the names of every node between the context frontier
// and the target: the target itself, and transitively the dependencies of
// each unvalued node on the way, stopping at nodes whose value the context
// supplies. A conditional with a condition already true in the context
// contributes only that condition and the selected possibility. The result
// is sorted. The graph must be finalized.
func (g *Graph) PathToTarget(values Context, target string) ([]string, error) {
	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	if _, ok := s.nodes[target]; !ok {
		return nil, &UnknownNodeError{Node: target}
	}

	working := s.workingContext(values)
	inPath := make(map[string]bool)

	var visit func(name string)
	visit = func(name string) {
		if inPath[name] {
			return
		}
		inPath[name] = true
		if working.Has(name) {
			return
		}
		n := s.nodes[name]
		if n.kind == ConditionalNode {
			// A condition already true in the context pins the branch: only
			// that condition and its possibility are on the path.
			for i, condition := range n.conditions {
				if !working.Has(condition) {
					continue
				}
				if truthy, err := asBool(working[condition]); err == nil && truthy {
					visit(condition)
					visit(n.possibilities[i])
					return
				}
			}
		}
		for _, dep := range n.dependencies() {
			visit(dep)
		}
	}
	visit(target)

	path := make([]string, 0, len(inPath))
	for name := range inPath {
		path = append(path, name)
	}
	sort.Strings(path)
	return path, nil
}
