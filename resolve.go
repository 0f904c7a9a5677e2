package calcgrid

import (
	"context"

	"github.com/vk/calcgrid/internal/ctxlog"
)

// Resolve computes the evaluation plan for the given context and targets:
// the list of step and conditional nodes that must be evaluated, ordered so
// that every dependency of a planned node is either supplied in the context
// or appears earlier in the plan. The graph must be finalized.
//
// The plan is minimal for step nodes: traversal into a node's dependencies
// stops as soon as that node's value is found in the context, regardless of
// how many paths reach it. Conditional nodes are planned conservatively,
// since the taken branch is only known at execution time.
func (g *Graph) Resolve(ctx context.Context, values Context, targets ...string) ([]string, error) {
	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, s.workingContext(values), targets)
}

func (s *snapshot) resolve(ctx context.Context, values Context, targets []string) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("graph", s.name)

	// Unknown targets fail before any traversal.
	for _, target := range targets {
		if _, ok := s.nodes[target]; !ok {
			return nil, &UnknownNodeError{Node: target}
		}
	}

	var plan []string
	visited := make(map[string]bool, len(s.nodes))

	// Depth-first postorder over declared dependency lists. Dependency lists
	// and target order are both caller-declared, so the resulting plan is
	// deterministic for identical inputs.
	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true

		// A supplied value makes the node a leaf, whatever its kind.
		if values.Has(name) {
			return nil
		}

		n := s.nodes[name]
		switch n.kind {
		case DataNode:
			return &MissingInputError{Node: name}
		case StepNode:
			for _, dep := range n.deps {
				if err := visit(dep); err != nil {
					return err
				}
			}
			plan = append(plan, name)
		case ConditionalNode:
			for _, dep := range n.dependencies() {
				if err := visit(dep); err != nil {
					return err
				}
			}
			plan = append(plan, name)
		}
		return nil
	}

	for _, target := range targets {
		if err := visit(target); err != nil {
			return nil, err
		}
	}

	logger.Debug("Resolve: evaluation plan computed.", "targets", targets, "plan_length", len(plan))
	return plan, nil
}
