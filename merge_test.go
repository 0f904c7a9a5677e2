package calcgrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("disjoint graphs compose", func(t *testing.T) {
		a := New("first")
		a.AddStep("x", "double", "in")
		a.BindRecipes(map[string]any{"double": double})

		b := New("second")
		b.AddStep("y", "triple", "in")
		b.BindRecipes(map[string]any{"triple": func(x float64) float64 { return 3 * x }})

		merged, err := Merge(a, b)
		require.NoError(t, err)
		require.NoError(t, merged.Finalize(ctx))

		result, err := merged.Execute(ctx, Context{"in": 2.0}, "x", "y")
		require.NoError(t, err)
		assert.Equal(t, 4.0, result["x"])
		assert.Equal(t, 6.0, result["y"])
	})

	t.Run("data node is promoted by the other graph", func(t *testing.T) {
		a := New("first")
		a.AddStep("out", "double", "mid") // mid is a plain data node here
		a.BindRecipes(map[string]any{"double": double})

		b := New("second")
		b.AddStep("mid", "double", "in")
		b.BindRecipes(map[string]any{"double": double})

		merged, err := Merge(a, b)
		require.NoError(t, err)
		require.NoError(t, merged.Finalize(ctx))

		kind, err := merged.Kind("mid")
		require.NoError(t, err)
		assert.Equal(t, StepNode, kind)

		result, err := merged.Execute(ctx, Context{"in": 3.0}, "out")
		require.NoError(t, err)
		assert.Equal(t, 12.0, result["out"])
	})

	t.Run("identical step definitions are compatible", func(t *testing.T) {
		a := New("first")
		a.AddStep("out", "double", "in")
		b := New("second")
		b.AddStep("out", "double", "in")

		_, err := Merge(a, b)
		assert.NoError(t, err)
	})

	t.Run("conflicting step definitions are rejected", func(t *testing.T) {
		a := New("first")
		a.AddStep("out", "double", "in")
		b := New("second")
		b.AddStep("out", "double", "other_in")

		_, err := Merge(a, b)
		assert.ErrorContains(t, err, "defined differently")
	})

	t.Run("conflicting recipe bindings are rejected", func(t *testing.T) {
		a := New("first")
		a.BindRecipes(map[string]any{"double": double})
		b := New("second")
		b.BindRecipes(map[string]any{"double": func(x float64) float64 { return 2 * x }})

		_, err := Merge(a, b)
		assert.ErrorContains(t, err, "different functions")
	})

	t.Run("same function bound twice is fine", func(t *testing.T) {
		a := New("first")
		a.BindRecipes(map[string]any{"double": double})
		b := New("second")
		b.BindRecipes(map[string]any{"double": double})

		_, err := Merge(a, b)
		assert.NoError(t, err)
	})

	t.Run("merged graph must be re-finalized", func(t *testing.T) {
		a := New("first")
		a.AddStep("x", "double", "in")
		a.BindRecipes(map[string]any{"double": double})
		require.NoError(t, a.Finalize(ctx))

		merged, err := Merge(a, New("second"))
		require.NoError(t, err)
		assert.False(t, merged.IsFinalized())
	})
}
