// Package calcgrid describes computations as directed acyclic graphs of
// named values and the recipes that derive them, then executes only the
// subset of the graph needed to produce requested targets from a partial
// context of known values.
//
// A graph is built incrementally:
//
//	g := calcgrid.New("ideal_gas")
//	g.AddStep("T", "calculate_T", "P", "V", "n", "R")
//	g.AddStep("U", "calculate_U", "n", "R", "T")
//	g.BindRecipes(map[string]any{
//		"calculate_T": func(P, V, n, R float64) float64 { return P * V / (n * R) },
//		"calculate_U": func(n, R, T float64) float64 { return 1.5 * n * R * T },
//	})
//	if err := g.Finalize(ctx); err != nil { ... }
//
// and executed against a value context:
//
//	result, err := g.Execute(ctx, calcgrid.Context{"P": 101325.0, "V": 0.1, "n": 1.0, "R": 8.314}, "U")
//	// result["U"] == 15198.75, result also holds the intermediate "T"
//
// Supplying a value for any node, including an intermediate one, makes that
// node a leaf: its own dependencies are never evaluated. Recipes are assumed
// pure, execution is synchronous and deterministic, and the input graph and
// context are never mutated.
package calcgrid
