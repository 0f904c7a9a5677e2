package calcgrid

import (
	"context"
	"fmt"
)

// GraphFunc is a graph projected onto a plain Go function: positional
// arguments in, the target's value out.
type GraphFunc func(args ...any) (any, error)

// Lambdify projects the graph onto a plain function of the named inputs that
// computes target. Each call executes the graph against a fresh context
// holding only the arguments, so calls are independent and the graph is
// never mutated. Graph defaults still apply beneath the arguments; an input
// that shadows a default wins.
//
// The wiring is validated up front: the graph must be finalized, target and
// inputs must exist, and the inputs (plus defaults) must be sufficient to
// compute the target, otherwise a MissingInputError names what is missing.
func (g *Graph) Lambdify(ctx context.Context, target string, inputs ...string) (GraphFunc, error) {
	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	if _, ok := s.nodes[target]; !ok {
		return nil, &UnknownNodeError{Node: target}
	}
	for _, input := range inputs {
		if _, ok := s.nodes[input]; !ok {
			return nil, &UnknownNodeError{Node: input}
		}
	}

	// Probe resolution with placeholder inputs so an unsatisfiable wiring
	// fails here instead of on the first call.
	probe := s.workingContext(nil)
	for _, input := range inputs {
		probe[input] = nil
	}
	if _, err := s.resolve(ctx, probe, []string{target}); err != nil {
		return nil, err
	}

	inputsCopy := make([]string, len(inputs))
	copy(inputsCopy, inputs)

	return func(args ...any) (any, error) {
		if len(args) != len(inputsCopy) {
			return nil, fmt.Errorf("graph function for '%s' takes %d arguments, got %d", target, len(inputsCopy), len(args))
		}
		values := make(Context, len(inputsCopy))
		for i, input := range inputsCopy {
			values[input] = args[i]
		}
		result, err := g.Execute(ctx, values, target)
		if err != nil {
			return nil, err
		}
		return result[target], nil
	}, nil
}
