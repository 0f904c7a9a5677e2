package calcgrid

import (
	"fmt"
	"reflect"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// ConvertConditional rewrites the named conditional into a plain step that
// forwards one fixed possibility: the one paired with the first condition
// that is true in the given values (merged over the graph defaults), or the
// fallback possibility when no condition is true and the conditional has one
// more possibility than conditions. The forwarding recipe is bound
// automatically; the graph must be re-finalized before execution.
func (g *Graph) ConvertConditional(name string, values Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.convertConditionalLocked(name, values)
}

// ConvertAllConditionals converts every conditional node in the graph, in
// creation order.
func (g *Graph) ConvertAllConditionals(values Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range g.order {
		if g.nodes[name].kind != ConditionalNode {
			continue
		}
		if err := g.convertConditionalLocked(name, values); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) convertConditionalLocked(name string, values Context) error {
	n, ok := g.nodes[name]
	if !ok {
		return &UnknownNodeError{Node: name}
	}
	if n.kind != ConditionalNode {
		return fmt.Errorf("cannot convert node '%s': it is a %s, not a conditional", name, n.kind)
	}

	working := g.defaults.Clone()
	working.merge(values)

	chosen := ""
	found := false
	for i, condition := range n.conditions {
		if !working.Has(condition) {
			continue
		}
		if truthy, err := asBool(working[condition]); err == nil && truthy {
			chosen = n.possibilities[i]
			found = true
			break
		}
	}
	if !found {
		if len(n.possibilities) != len(n.conditions)+1 {
			return fmt.Errorf("cannot convert conditional '%s': no condition is true and there is no fallback possibility", name)
		}
		chosen = n.possibilities[len(n.possibilities)-1]
	}

	recipe := "forward_" + name
	g.nodes[name] = &nodeDef{name: name, kind: StepNode, recipe: recipe, deps: []string{chosen}}
	g.recipes[recipe] = func(v any) any { return v }
	g.epoch++
	return nil
}

// SimplifyDependency collapses a step dependency into its consumer: node's
// recipe is replaced by a composition that evaluates dependency inline, and
// node depends directly on dependency's inputs in its place. Both nodes must
// be steps with bound recipes. The graph must be re-finalized before
// execution.
func (g *Graph) SimplifyDependency(node, dependency string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.simplifyDependencyLocked(node, dependency)
}

// SimplifyAllDependencies collapses every step dependency of the node except
// those named in exclude. Data and conditional dependencies are left alone.
func (g *Graph) SimplifyAllDependencies(node string, exclude ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	n, ok := g.nodes[node]
	if !ok {
		return &UnknownNodeError{Node: node}
	}
	deps := make([]string, len(n.deps))
	copy(deps, n.deps)

	for _, dep := range deps {
		if excluded[dep] {
			continue
		}
		if d, ok := g.nodes[dep]; !ok || d.kind != StepNode {
			continue
		}
		if err := g.simplifyDependencyLocked(node, dep); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) simplifyDependencyLocked(node, dependency string) error {
	n, ok := g.nodes[node]
	if !ok {
		return &UnknownNodeError{Node: node}
	}
	if n.kind != StepNode {
		return fmt.Errorf("cannot simplify into node '%s': it is a %s, not a step", node, n.kind)
	}
	d, ok := g.nodes[dependency]
	if !ok {
		return &UnknownNodeError{Node: dependency}
	}
	if d.kind != StepNode {
		return fmt.Errorf("cannot simplify dependency '%s': it is a %s, not a step", dependency, d.kind)
	}

	declared := false
	for _, dep := range n.deps {
		if dep == dependency {
			declared = true
			break
		}
	}
	if !declared {
		return fmt.Errorf("node '%s' does not depend on '%s'", node, dependency)
	}

	outer, ok := g.recipes[n.recipe]
	if !ok {
		return fmt.Errorf("recipe '%s' of node '%s' is not bound", n.recipe, node)
	}
	inner, ok := g.recipes[d.recipe]
	if !ok {
		return fmt.Errorf("recipe '%s' of node '%s' is not bound", d.recipe, dependency)
	}

	// The collapsed node takes dependency's inputs in its place, keeping
	// first occurrences and dropping duplicates.
	var newDeps []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			newDeps = append(newDeps, name)
		}
	}
	for _, dep := range n.deps {
		if dep == dependency {
			for _, sub := range d.deps {
				add(sub)
			}
			continue
		}
		add(dep)
	}

	outerDeps := make([]string, len(n.deps))
	copy(outerDeps, n.deps)
	innerDeps := make([]string, len(d.deps))
	copy(innerDeps, d.deps)

	recipe := "composed_recipe_for_" + node
	g.nodes[node] = &nodeDef{name: node, kind: StepNode, recipe: recipe, deps: newDeps}
	g.recipes[recipe] = composeRecipes(outer, inner, outerDeps, innerDeps, dependency, newDeps)
	g.epoch++
	return nil
}

// composeRecipes builds a function over the collapsed dependency list that
// evaluates inner first and feeds its result to outer in the replaced slot.
// Arguments and results travel as `any`, matching how the engine carries
// context values; invokeRecipe coerces them at each inner call.
func composeRecipes(outer, inner any, outerDeps, innerDeps []string, replaced string, newDeps []string) any {
	ins := make([]reflect.Type, len(newDeps))
	for i := range ins {
		ins[i] = anyType
	}
	fnType := reflect.FuncOf(ins, []reflect.Type{anyType, errorInterface}, false)

	index := make(map[string]int, len(newDeps))
	for i, name := range newDeps {
		index[name] = i
	}

	return reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		value := func(name string) any { return in[index[name]].Interface() }

		innerArgs := make([]any, len(innerDeps))
		for i, name := range innerDeps {
			innerArgs[i] = value(name)
		}
		innerResult, err := invokeRecipe(inner, innerArgs)
		if err != nil {
			return composedResults(nil, fmt.Errorf("computing '%s': %w", replaced, err))
		}

		outerArgs := make([]any, len(outerDeps))
		for i, name := range outerDeps {
			if name == replaced {
				outerArgs[i] = innerResult
				continue
			}
			outerArgs[i] = value(name)
		}
		result, err := invokeRecipe(outer, outerArgs)
		return composedResults(result, err)
	}).Interface()
}

func composedResults(result any, err error) []reflect.Value {
	rv := reflect.New(anyType).Elem()
	if result != nil {
		rv.Set(reflect.ValueOf(result))
	}
	ev := reflect.Zero(errorInterface)
	if err != nil {
		ev = reflect.ValueOf(err)
	}
	return []reflect.Value{rv, ev}
}
