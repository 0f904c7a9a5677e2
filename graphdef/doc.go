// Package graphdef loads graph topology from HCL definition files: step and
// conditional declarations plus constant values. Only structure and
// constants come from files; recipe bindings are Go functions and are always
// registered through calcgrid.Graph.BindRecipes.
//
// A definition file looks like:
//
//	step "T" {
//	  recipe = "calculate_T"
//	  inputs = ["P", "V", "n", "R"]
//	}
//
//	values {
//	  R = 8.314
//	}
package graphdef
