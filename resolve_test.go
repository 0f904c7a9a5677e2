package calcgrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGraph builds a diamond-shaped graph whose recipes count their own
// invocations:
//
//	base -> left -> top
//	base -> right -> top
type countingGraph struct {
	g     *Graph
	calls map[string]int
}

func newCountingGraph(t *testing.T) *countingGraph {
	t.Helper()
	cg := &countingGraph{
		g:     New("diamond"),
		calls: make(map[string]int),
	}

	counted := func(name string, fn func(float64) float64) any {
		return func(x float64) float64 {
			cg.calls[name]++
			return fn(x)
		}
	}
	sum := func(a, b float64) float64 {
		cg.calls["make_top"]++
		return a + b
	}

	cg.g.AddStep("left", "make_left", "base")
	cg.g.AddStep("right", "make_right", "base")
	cg.g.AddStep("top", "make_top", "left", "right")
	cg.g.BindRecipes(map[string]any{
		"make_left":  counted("make_left", func(x float64) float64 { return x + 1 }),
		"make_right": counted("make_right", func(x float64) float64 { return x * 2 }),
		"make_top":   sum,
	})
	require.NoError(t, cg.g.Finalize(context.Background()))
	return cg
}

func TestResolvePlanOrder(t *testing.T) {
	cg := newCountingGraph(t)

	plan, err := cg.g.Resolve(context.Background(), Context{"base": 1.0}, "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "top"}, plan)
}

func TestResolveIsDeterministic(t *testing.T) {
	cg := newCountingGraph(t)

	first, err := cg.g.Resolve(context.Background(), Context{"base": 1.0}, "top")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := cg.g.Resolve(context.Background(), Context{"base": 1.0}, "top")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveOverrideShortCircuits(t *testing.T) {
	ctx := context.Background()
	cg := newCountingGraph(t)

	// Supplying left directly must keep its ancestors out of the plan even
	// though base is reachable through right as well.
	plan, err := cg.g.Resolve(ctx, Context{"base": 1.0, "left": 5.0}, "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"right", "top"}, plan)

	result, err := cg.g.Execute(ctx, Context{"base": 1.0, "left": 5.0}, "top")
	require.NoError(t, err)
	assert.Equal(t, 7.0, result["top"])
	assert.Zero(t, cg.calls["make_left"], "overridden step must not be invoked")
	assert.Equal(t, 1, cg.calls["make_right"])
}

func TestResolveTargetOverrideNeedsNothing(t *testing.T) {
	cg := newCountingGraph(t)

	plan, err := cg.g.Resolve(context.Background(), Context{"top": 3.0}, "top")
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestResolveMultiTargetDeduplicates(t *testing.T) {
	ctx := context.Background()
	cg := newCountingGraph(t)

	plan, err := cg.g.Resolve(ctx, Context{"base": 1.0}, "left", "top", "right")
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "top"}, plan)

	_, err = cg.g.Execute(ctx, Context{"base": 1.0}, "left", "top", "right")
	require.NoError(t, err)
	for recipe, count := range cg.calls {
		assert.Equal(t, 1, count, "recipe %s must run exactly once", recipe)
	}
}

func TestResolveMissingInputBeforeExecution(t *testing.T) {
	cg := newCountingGraph(t)

	_, err := cg.g.Execute(context.Background(), Context{}, "top")
	var missing *MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "base", missing.Node)
	assert.Empty(t, cg.calls, "no recipe may run when resolution fails")
}

func TestResolveUnknownTargetBeforeTraversal(t *testing.T) {
	cg := newCountingGraph(t)

	_, err := cg.g.Resolve(context.Background(), Context{"base": 1.0}, "top", "nope")
	var unknown *UnknownNodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Node)
}

func TestResolveRequiresFinalizedGraph(t *testing.T) {
	g := New("test")
	g.AddStep("out", "double", "in")

	_, err := g.Resolve(context.Background(), Context{"in": 1.0}, "out")
	assert.ErrorIs(t, err, ErrNotFinalized)
}
