// Package viz projects a calcgrid graph onto a Graphviz digraph. It is a
// read-only consumer of the graph model: nothing here affects resolution or
// execution.
package viz

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/vk/calcgrid"
)

// generationPalette cycles through fill colors when coloring by topological
// generation.
var generationPalette = []string{
	"lightblue", "lightgoldenrod", "lightpink", "lightseagreen",
	"lightsalmon", "lightskyblue", "lightgreen", "lightcoral",
}

type options struct {
	hideRecipes        bool
	prettyNames        bool
	colorByGeneration  bool
	values             calcgrid.Context
	rankdir            string
	splines            string
}

// Option configures a projection.
type Option func(*options)

// HideRecipes omits recipe names from step node labels.
func HideRecipes() Option {
	return func(o *options) { o.hideRecipes = true }
}

// PrettyNames renders node labels in a human-friendly form: underscores
// become spaces and each word is capitalized.
func PrettyNames() Option {
	return func(o *options) { o.prettyNames = true }
}

// WithValues appends each node's value from the given context to its label.
func WithValues(values calcgrid.Context) Option {
	return func(o *options) { o.values = values }
}

// ColorByGeneration fills each node with a color keyed to its topological
// generation, so evaluation depth is visible at a glance.
func ColorByGeneration() Option {
	return func(o *options) { o.colorByGeneration = true }
}

// Rankdir sets the layout direction, e.g. "TB" or "LR".
func Rankdir(dir string) Option {
	return func(o *options) { o.rankdir = dir }
}

// Splines sets the Graphviz edge routing mode, e.g. "ortho".
func Splines(mode string) Option {
	return func(o *options) { o.splines = mode }
}

// Projection is a rendered-on-demand Graphviz view of a graph.
type Projection struct {
	graph *dot.Graph
}

// New builds the Graphviz projection of a graph: one visual node per graph
// node (data, step, and conditional nodes styled differently), one visual
// edge per dependency edge.
func New(g *calcgrid.Graph, opts ...Option) (*Projection, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dg := dot.NewGraph(dot.Directed)
	if o.rankdir != "" {
		dg.Attr("rankdir", o.rankdir)
	}
	if o.splines != "" {
		dg.Attr("splines", o.splines)
	}

	var generationOf map[string]int
	if o.colorByGeneration {
		generations, err := g.Generations()
		if err != nil {
			return nil, fmt.Errorf("cannot color by generation: %w", err)
		}
		generationOf = make(map[string]int)
		for i, generation := range generations {
			for _, name := range generation {
				generationOf[name] = i
			}
		}
	}

	for _, name := range g.Nodes() {
		kind, err := g.Kind(name)
		if err != nil {
			return nil, err
		}

		n := dg.Node(name)
		n.Attr("shape", shapeFor(kind))
		n.Attr("label", labelFor(g, name, kind, &o))

		if o.colorByGeneration {
			n.Attr("style", "filled")
			n.Attr("fillcolor", generationPalette[generationOf[name]%len(generationPalette)])
		}
	}

	for _, name := range g.Nodes() {
		deps, err := g.Dependencies(name)
		if err != nil {
			return nil, err
		}
		conditions, err := g.Conditions(name)
		if err != nil {
			return nil, err
		}
		isCondition := make(map[string]bool, len(conditions))
		for _, c := range conditions {
			isCondition[c] = true
		}
		for _, dep := range deps {
			edge := dg.Edge(dg.Node(dep), dg.Node(name))
			if isCondition[dep] {
				edge.Attr("arrowhead", "diamond")
			}
		}
	}

	return &Projection{graph: dg}, nil
}

func shapeFor(kind calcgrid.NodeKind) string {
	switch kind {
	case calcgrid.StepNode:
		return "box"
	case calcgrid.ConditionalNode:
		return "diamond"
	default:
		return "ellipse"
	}
}

func labelFor(g *calcgrid.Graph, name string, kind calcgrid.NodeKind, o *options) string {
	label := name
	if o.prettyNames {
		label = prettifyLabel(name)
	}

	if kind == calcgrid.StepNode && !o.hideRecipes {
		if recipe, err := g.Recipe(name); err == nil && recipe != "" {
			label += "\n" + recipe
		}
	}

	if o.values != nil && o.values.Has(name) {
		label += "\n" + formatValue(o.values[name])
	}
	return label
}

// formatValue keeps labels short: floats in scientific notation, everything
// else truncated to its first line.
func formatValue(v any) string {
	var s string
	switch f := v.(type) {
	case float64:
		s = fmt.Sprintf("%.2e", f)
	case float32:
		s = fmt.Sprintf("%.2e", f)
	default:
		s = fmt.Sprint(v)
	}
	line, rest, _ := strings.Cut(s, "\n")
	if rest != "" {
		line += "..."
	}
	return line
}

// prettifyLabel turns "molar_mass" into "Molar Mass".
func prettifyLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// DOT returns the Graphviz source of the projection.
func (p *Projection) DOT() string {
	return p.graph.String()
}
