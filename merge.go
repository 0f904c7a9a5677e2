package calcgrid

import (
	"fmt"
	"reflect"
)

// Merge combines two graphs into a new one. Nodes present in both must be
// compatible: same kind with identical structure, or one side still a plain
// data node (the more specified side wins, which is how a data node declared
// in one graph is promoted by a step defined in the other). Recipe tables
// and defaults are merged; a name bound to different functions in the two
// graphs is a conflict. The result is not finalized.
func Merge(a, b *Graph) (*Graph, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := New(a.name)

	for _, name := range a.order {
		out.putLocked(a.nodes[name])
	}
	for _, name := range b.order {
		existing, ok := out.nodes[name]
		if !ok {
			out.putLocked(b.nodes[name])
			continue
		}
		merged, err := mergeNodes(existing, b.nodes[name])
		if err != nil {
			return nil, err
		}
		out.nodes[name] = merged
	}

	for name, fn := range a.recipes {
		out.recipes[name] = fn
	}
	for name, fn := range b.recipes {
		if existing, ok := out.recipes[name]; ok && !sameFunction(existing, fn) {
			return nil, fmt.Errorf("cannot merge graphs: recipe '%s' is bound to different functions", name)
		}
		out.recipes[name] = fn
	}

	for name, value := range a.defaults {
		out.defaults[name] = value
	}
	for name, value := range b.defaults {
		if existing, ok := out.defaults[name]; ok && !reflect.DeepEqual(existing, value) {
			return nil, fmt.Errorf("cannot merge graphs: conflicting default values for node '%s'", name)
		}
		out.defaults[name] = value
	}

	return out, nil
}

// mergeNodes reconciles two definitions of the same node name.
func mergeNodes(a, b *nodeDef) (*nodeDef, error) {
	// A plain data node is the "undeclared" form: the other side wins.
	if a.kind == DataNode {
		return b, nil
	}
	if b.kind == DataNode {
		return a, nil
	}
	if a.kind != b.kind {
		return nil, fmt.Errorf("cannot merge graphs: node '%s' is a %s in one graph and a %s in the other", a.name, a.kind, b.kind)
	}

	switch a.kind {
	case StepNode:
		if a.recipe != b.recipe || !equalStrings(a.deps, b.deps) {
			return nil, fmt.Errorf("cannot merge graphs: step node '%s' is defined differently in the two graphs", a.name)
		}
	case ConditionalNode:
		if !equalStrings(a.conditions, b.conditions) || !equalStrings(a.possibilities, b.possibilities) {
			return nil, fmt.Errorf("cannot merge graphs: conditional node '%s' is defined differently in the two graphs", a.name)
		}
	}
	return a, nil
}

// sameFunction reports whether two bound recipes are the same function. Two
// distinct functions never compare equal, even with identical bodies.
func sameFunction(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != reflect.Func || bv.Kind() != reflect.Func {
		return reflect.DeepEqual(a, b)
	}
	return av.Pointer() == bv.Pointer()
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
