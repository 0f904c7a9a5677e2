package calcgrid

import (
	"context"
	"fmt"

	"github.com/vk/calcgrid/internal/ctxlog"
)

// AddStep creates or replaces the node named output as a step node that
// computes recipeName over the given dependencies, in order. Dependency
// names that do not exist yet are created as data nodes. If output already
// exists as a data node that other steps depend on, it is promoted to a step
// node and its dependents are unaffected.
func (g *Graph) AddStep(output, recipeName string, deps ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	depsCopy := make([]string, len(deps))
	copy(depsCopy, deps)

	g.putLocked(&nodeDef{
		name:   output,
		kind:   StepNode,
		recipe: recipeName,
		deps:   depsCopy,
	})
	for _, dep := range deps {
		g.ensureLocked(dep)
	}
	g.epoch++
}

// AddConditional creates or replaces the node named output as a conditional
// node. Its value at execution time is the value of the possibility paired
// with the first condition that is true; if no condition is true, the last
// possibility wins.
func (g *Graph) AddConditional(output string, conditions, possibilities []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	condsCopy := make([]string, len(conditions))
	copy(condsCopy, conditions)
	possCopy := make([]string, len(possibilities))
	copy(possCopy, possibilities)

	g.putLocked(&nodeDef{
		name:          output,
		kind:          ConditionalNode,
		conditions:    condsCopy,
		possibilities: possCopy,
	})
	for _, name := range condsCopy {
		g.ensureLocked(name)
	}
	for _, name := range possCopy {
		g.ensureLocked(name)
	}
	g.epoch++
}

// AddSimpleConditional creates a two-way conditional: output takes the value
// of ifTrue when condition is true, of ifFalse otherwise.
func (g *Graph) AddSimpleConditional(output, condition, ifTrue, ifFalse string) {
	g.AddConditional(output, []string{condition}, []string{ifTrue, ifFalse})
}

// BindRecipes merges the given mapping into the recipe table. New bindings
// add to or replace existing ones; bindings not mentioned are kept. Values
// must be functions; their shape is validated by Finalize.
func (g *Graph) BindRecipes(recipes map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for name, fn := range recipes {
		g.recipes[name] = fn
	}
	g.epoch++
}

// SetDefault records a graph-level default value for a node, creating the
// node as a data node if needed. Defaults are merged beneath the caller's
// context at execution time, so definition-time constants survive across
// executions without being repeated in every context.
func (g *Graph) SetDefault(name string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureLocked(name)
	g.defaults[name] = value
	g.epoch++
}

// RemoveNode deletes a node and its default value without touching anything
// else. Nodes that referenced it keep their dependency declarations, so the
// graph will not re-finalize until the name is redefined or the dependents
// are replaced.
func (g *Graph) RemoveNode(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[name]; !ok {
		return &UnknownNodeError{Node: name}
	}
	delete(g.nodes, name)
	delete(g.defaults, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.epoch++
	return nil
}

// putLocked inserts or replaces a node definition, preserving creation order
// on replacement.
func (g *Graph) putLocked(n *nodeDef) {
	if _, exists := g.nodes[n.name]; !exists {
		g.order = append(g.order, n.name)
	}
	g.nodes[n.name] = n
}

// ensureLocked creates a data node for the name unless a node already exists.
func (g *Graph) ensureLocked(name string) {
	if _, exists := g.nodes[name]; exists {
		return
	}
	g.order = append(g.order, name)
	g.nodes[name] = &nodeDef{name: name, kind: DataNode}
}

// Finalize validates the graph definition: no cycles, no dangling dependency
// names, and a bound, shape-compatible recipe for every step node. It is
// idempotent validation, not a lock: a finalized graph may be extended
// further, but must be re-finalized before execution reflects the changes.
func (g *Graph) Finalize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("graph", g.name)
	logger.Debug("Finalize: validating graph definition.")

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finalized == g.epoch {
		logger.Debug("Finalize: definition unchanged since last validation.")
		return nil
	}

	// Dangling references first: the topology projection silently skips
	// them, so cycle detection would otherwise mask the real problem.
	for _, name := range g.order {
		n := g.nodes[name]
		for _, dep := range n.dependencies() {
			if dep == name {
				return &DefinitionError{
					Kind:   CycleDetected,
					Node:   name,
					Detail: "node depends on itself",
				}
			}
			if _, ok := g.nodes[dep]; !ok {
				return &DefinitionError{
					Kind:   DanglingDependency,
					Node:   name,
					Detail: fmt.Sprintf("references nonexistent node '%s'", dep),
				}
			}
		}
	}

	if err := g.topologyLocked().DetectCycles(); err != nil {
		return &DefinitionError{
			Kind:   CycleDetected,
			Detail: err.Error(),
		}
	}

	for _, name := range g.order {
		n := g.nodes[name]
		if n.kind != ConditionalNode {
			continue
		}
		if len(n.possibilities) == 0 {
			return &DefinitionError{
				Kind:   InvalidConditional,
				Node:   name,
				Detail: "conditional has no possibilities",
			}
		}
		if len(n.possibilities) < len(n.conditions) {
			return &DefinitionError{
				Kind:   InvalidConditional,
				Node:   name,
				Detail: fmt.Sprintf("%d conditions but only %d possibilities", len(n.conditions), len(n.possibilities)),
			}
		}
	}

	for _, name := range g.order {
		n := g.nodes[name]
		if n.kind != StepNode {
			continue
		}
		fn, ok := g.recipes[n.recipe]
		if !ok {
			return &DefinitionError{
				Kind:   UnboundRecipe,
				Node:   name,
				Recipe: n.recipe,
				Detail: "no function bound for this recipe name",
			}
		}
		if err := validateRecipe(fn, len(n.deps)); err != nil {
			return &DefinitionError{
				Kind:   UnboundRecipe,
				Node:   name,
				Recipe: n.recipe,
				Detail: err.Error(),
			}
		}
	}

	g.finalized = g.epoch
	logger.Debug("Finalize: graph definition is valid.", "nodes", len(g.nodes), "recipes", len(g.recipes))
	return nil
}
