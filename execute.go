package calcgrid

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/calcgrid/internal/ctxlog"
)

// Execute evaluates the graph for the given targets. The returned context is
// the caller's context extended with every value computed along the way, so
// intermediate results stay inspectable for debugging and chaining; callers
// typically read result[target].
//
// Execution is synchronous and single-threaded: each planned node runs to
// completion before the next is considered. The input context and the graph
// are never mutated. Resolution failures surface before any recipe is
// invoked; a recipe failure aborts execution and is returned as a
// *RecipeError carrying the partially updated working context.
func (g *Graph) Execute(ctx context.Context, values Context, targets ...string) (Context, error) {
	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}

	ctx = ctxlog.With(ctx, "graph", s.name, "run_id", uuid.NewString())
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Execute: starting run.", "targets", targets)

	working := s.workingContext(values)
	plan, err := s.resolve(ctx, working, targets)
	if err != nil {
		return nil, err
	}

	for _, name := range plan {
		n := s.nodes[name]
		switch n.kind {
		case StepNode:
			if err := s.evaluateStep(n, working); err != nil {
				logger.Debug("Execute: run failed.", "node", name, "error", err)
				return working, err
			}
		case ConditionalNode:
			if err := s.evaluateConditional(n, working); err != nil {
				logger.Debug("Execute: run failed.", "node", name, "error", err)
				return working, err
			}
		}
		logger.Debug("Execute: node evaluated.", "node", name)
	}

	logger.Debug("Execute: run complete.", "computed", len(plan))
	return working, nil
}

// workingContext layers the caller's values over the graph defaults into a
// fresh context the engine is free to extend.
func (s *snapshot) workingContext(values Context) Context {
	working := s.defaults.Clone()
	working.merge(values)
	return working
}

// evaluateStep invokes the step's recipe with the current values of its
// declared dependencies, in order, and stores the result under the step's
// name.
func (s *snapshot) evaluateStep(n *nodeDef, working Context) error {
	args := make([]any, len(n.deps))
	for i, dep := range n.deps {
		args[i] = working[dep]
	}

	result, err := invokeRecipe(s.recipes[n.recipe], args)
	if err != nil {
		return &RecipeError{
			Node:    n.name,
			Recipe:  n.recipe,
			Err:     err,
			Partial: working,
		}
	}
	working[n.name] = result
	return nil
}

// evaluateConditional copies the value of the possibility selected by the
// first true condition; when no condition is true the last possibility wins.
func (s *snapshot) evaluateConditional(n *nodeDef, working Context) error {
	chosen := n.possibilities[len(n.possibilities)-1]
	for i, condition := range n.conditions {
		truthy, err := asBool(working[condition])
		if err != nil {
			return &RecipeError{
				Node:    n.name,
				Recipe:  "",
				Err:     fmt.Errorf("condition '%s': %w", condition, err),
				Partial: working,
			}
		}
		if truthy {
			chosen = n.possibilities[i]
			break
		}
	}
	working[n.name] = working[chosen]
	return nil
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("condition value must be a bool, got %T", v)
	}
}
