package calcgrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func double(x float64) float64 { return 2 * x }

func TestAddStepCreatesDependenciesAsDataNodes(t *testing.T) {
	g := New("test")
	g.AddStep("out", "double", "in")

	kind, err := g.Kind("out")
	require.NoError(t, err)
	assert.Equal(t, StepNode, kind)

	kind, err = g.Kind("in")
	require.NoError(t, err)
	assert.Equal(t, DataNode, kind)

	deps, err := g.Dependencies("out")
	require.NoError(t, err)
	assert.Equal(t, []string{"in"}, deps)

	recipe, err := g.Recipe("out")
	require.NoError(t, err)
	assert.Equal(t, "double", recipe)
}

func TestAddStepPromotesDataNode(t *testing.T) {
	g := New("test")
	g.AddStep("b", "double", "a")
	g.AddStep("c", "double", "b")

	// b starts as a step already; promote the plain data node a instead.
	g.AddStep("a", "double", "raw")

	kind, err := g.Kind("a")
	require.NoError(t, err)
	assert.Equal(t, StepNode, kind)

	// Dependents are untouched by the promotion.
	deps, err := g.Dependencies("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, deps)
}

func TestKindUnknownNode(t *testing.T) {
	g := New("test")
	_, err := g.Kind("nope")

	var unknown *UnknownNodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Node)
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("valid graph finalizes and is idempotent", func(t *testing.T) {
		g := New("test")
		g.AddStep("out", "double", "in")
		g.BindRecipes(map[string]any{"double": double})

		require.NoError(t, g.Finalize(ctx))
		assert.True(t, g.IsFinalized())
		require.NoError(t, g.Finalize(ctx))
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		g := New("test")
		g.AddStep("a", "double", "b")
		g.AddStep("b", "double", "a")
		g.BindRecipes(map[string]any{"double": double})

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, CycleDetected, def.Kind)
		assert.False(t, g.IsFinalized())
	})

	t.Run("self-dependency is rejected", func(t *testing.T) {
		g := New("test")
		g.AddStep("a", "double", "a")
		g.BindRecipes(map[string]any{"double": double})

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, CycleDetected, def.Kind)
	})

	t.Run("unbound recipe is rejected", func(t *testing.T) {
		g := New("test")
		g.AddStep("out", "missing", "in")

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, UnboundRecipe, def.Kind)
		assert.Equal(t, "out", def.Node)
		assert.Equal(t, "missing", def.Recipe)
	})

	t.Run("arity mismatch is rejected", func(t *testing.T) {
		g := New("test")
		g.AddStep("out", "double", "a", "b")
		g.BindRecipes(map[string]any{"double": double})

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, UnboundRecipe, def.Kind)
		assert.Contains(t, def.Detail, "arity mismatch")
	})

	t.Run("non-function binding is rejected", func(t *testing.T) {
		g := New("test")
		g.AddStep("out", "double", "in")
		g.BindRecipes(map[string]any{"double": 42})

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, UnboundRecipe, def.Kind)
	})

	t.Run("dangling dependency after removal is rejected", func(t *testing.T) {
		g := New("test")
		g.AddStep("out", "double", "in")
		g.BindRecipes(map[string]any{"double": double})
		require.NoError(t, g.RemoveNode("in"))

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, DanglingDependency, def.Kind)
		assert.Equal(t, "out", def.Node)
	})

	t.Run("conditional without possibilities is rejected", func(t *testing.T) {
		g := New("test")
		g.AddConditional("choice", []string{"flag"}, nil)

		err := g.Finalize(ctx)
		var def *DefinitionError
		require.ErrorAs(t, err, &def)
		assert.Equal(t, InvalidConditional, def.Kind)
	})

	t.Run("mutation invalidates finalization", func(t *testing.T) {
		g := New("test")
		g.AddStep("out", "double", "in")
		g.BindRecipes(map[string]any{"double": double})
		require.NoError(t, g.Finalize(ctx))

		g.AddStep("extra", "double", "out")
		assert.False(t, g.IsFinalized())

		_, err := g.Execute(ctx, Context{"in": 1.0}, "out")
		assert.ErrorIs(t, err, ErrNotFinalized)
	})
}

func TestBindRecipesMerges(t *testing.T) {
	g := New("test")
	g.BindRecipes(map[string]any{"a": double})
	g.BindRecipes(map[string]any{"b": double})

	assert.ElementsMatch(t, []string{"a", "b"}, g.Recipes())
}

func TestRemoveNodeUnknown(t *testing.T) {
	g := New("test")
	var unknown *UnknownNodeError
	assert.ErrorAs(t, g.RemoveNode("nope"), &unknown)
}

func TestSetDefault(t *testing.T) {
	g := New("test")
	g.SetDefault("R", 8.314)

	kind, err := g.Kind("R")
	require.NoError(t, err)
	assert.Equal(t, DataNode, kind)
	assert.Equal(t, Context{"R": 8.314}, g.Defaults())
}
