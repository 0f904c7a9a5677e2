package calcgrid

import (
	"errors"
	"fmt"
)

// ErrNotFinalized is returned by Execute and Resolve when the graph has been
// mutated since the last successful Finalize.
var ErrNotFinalized = errors.New("graph definition not finalized")

// DefinitionErrorKind discriminates the structural problems Finalize can find.
type DefinitionErrorKind int

const (
	// CycleDetected means the dependency edges form a cycle.
	CycleDetected DefinitionErrorKind = iota
	// UnboundRecipe means a step references a recipe name with no bound
	// function, or the bound function does not match the step's shape.
	UnboundRecipe
	// DanglingDependency means a node references a dependency name that does
	// not exist in the graph.
	DanglingDependency
	// InvalidConditional means a conditional node's condition and possibility
	// lists do not line up.
	InvalidConditional
)

func (k DefinitionErrorKind) String() string {
	switch k {
	case CycleDetected:
		return "cycle detected"
	case UnboundRecipe:
		return "unbound recipe"
	case DanglingDependency:
		return "dangling dependency"
	case InvalidConditional:
		return "invalid conditional"
	default:
		return fmt.Sprintf("unknown definition error kind %d", int(k))
	}
}

// DefinitionError is returned by Finalize when the graph definition is not
// executable. It is never returned during execution.
type DefinitionError struct {
	Kind DefinitionErrorKind
	// Node is the node at which the problem was found.
	Node string
	// Recipe is the offending recipe name, set for UnboundRecipe.
	Recipe string
	// Detail elaborates on the problem, e.g. the arity mismatch.
	Detail string
}

func (e *DefinitionError) Error() string {
	msg := "invalid graph definition"
	if e.Node != "" {
		msg += fmt.Sprintf(" at node '%s'", e.Node)
	}
	msg += ": " + e.Kind.String()
	if e.Recipe != "" {
		msg += fmt.Sprintf(" '%s'", e.Recipe)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// UnknownNodeError reports a node name absent from the graph. It is returned
// by read accessors and by resolution before any traversal begins.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node '%s'", e.Node)
}

// MissingInputError reports a required leaf node that has neither a supplied
// value nor a recipe to compute one. It is returned by the resolver before
// any recipe runs.
type MissingInputError struct {
	Node string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input for node '%s': no value supplied and no recipe to compute it", e.Node)
}

// RecipeError wraps a failure raised by a user-supplied recipe during
// invocation. Partial holds the working context as it stood when the recipe
// failed, including every value computed before it.
type RecipeError struct {
	Node    string
	Recipe  string
	Err     error
	Partial Context
}

func (e *RecipeError) Error() string {
	return fmt.Sprintf("recipe '%s' failed while evaluating node '%s': %v", e.Recipe, e.Node, e.Err)
}

func (e *RecipeError) Unwrap() error {
	return e.Err
}
