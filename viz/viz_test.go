package viz

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/calcgrid"
)

func gasGraph(t *testing.T) *calcgrid.Graph {
	t.Helper()
	g := calcgrid.New("ideal_gas")
	g.AddStep("T", "calculate_T", "P", "V", "n", "R")
	g.AddStep("U", "calculate_U", "n", "R", "T")
	return g
}

func TestProjectionShapes(t *testing.T) {
	p, err := New(gasGraph(t))
	require.NoError(t, err)
	src := p.DOT()

	assert.Contains(t, src, "digraph")
	// Steps are boxes with their recipe on the second label line, data
	// nodes plain ellipses.
	assert.Contains(t, src, `shape="box"`)
	assert.Contains(t, src, `shape="ellipse"`)
	assert.Contains(t, src, `label="T\ncalculate_T"`)
	assert.Contains(t, src, `label="P"`)

	// Every dependency edge is present: 4 into T, 3 into U.
	assert.Equal(t, 7, strings.Count(src, "->"))
}

func TestProjectionConditional(t *testing.T) {
	g := calcgrid.New("choices")
	g.AddConditional("choice", []string{"flag"}, []string{"a", "b"})

	p, err := New(g)
	require.NoError(t, err)
	src := p.DOT()

	assert.Contains(t, src, `shape="diamond"`)
	// The condition edge is distinguished from the possibility edges.
	assert.Equal(t, 1, strings.Count(src, `arrowhead="diamond"`))
	assert.Equal(t, 3, strings.Count(src, "->"))
}

func TestProjectionOptions(t *testing.T) {
	g := calcgrid.New("reactor")
	g.AddStep("molar_mass", "lookup_mass", "element_symbol")

	t.Run("hide recipes", func(t *testing.T) {
		p, err := New(g, HideRecipes())
		require.NoError(t, err)
		assert.NotContains(t, p.DOT(), "lookup_mass")
	})

	t.Run("pretty names", func(t *testing.T) {
		p, err := New(g, PrettyNames(), HideRecipes())
		require.NoError(t, err)
		src := p.DOT()
		assert.Contains(t, src, `label="Molar Mass"`)
		assert.Contains(t, src, `label="Element Symbol"`)
	})

	t.Run("values in labels", func(t *testing.T) {
		p, err := New(g, WithValues(calcgrid.Context{
			"element_symbol": "He",
			"molar_mass":     4.0026,
		}))
		require.NoError(t, err)
		src := p.DOT()
		assert.Contains(t, src, `label="element_symbol\nHe"`)
		assert.Contains(t, src, `4.00e+00`)
	})

	t.Run("layout attributes", func(t *testing.T) {
		p, err := New(g, Rankdir("LR"), Splines("ortho"))
		require.NoError(t, err)
		src := p.DOT()
		assert.Contains(t, src, `rankdir="LR"`)
		assert.Contains(t, src, `splines="ortho"`)
	})

	t.Run("color by generation", func(t *testing.T) {
		p, err := New(g, ColorByGeneration())
		require.NoError(t, err)
		src := p.DOT()
		assert.Contains(t, src, `style="filled"`)
		assert.Contains(t, src, `fillcolor=`)
	})
}

func TestProjectionColorByGenerationCycle(t *testing.T) {
	g := calcgrid.New("cyclic")
	g.AddStep("a", "r", "b")
	g.AddStep("b", "r", "a")

	_, err := New(g, ColorByGeneration())
	assert.ErrorContains(t, err, "cannot color by generation")
}

func TestWriteDOT(t *testing.T) {
	p, err := New(gasGraph(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WriteDOT(&buf))
	assert.Equal(t, p.DOT(), buf.String())

	path := filepath.Join(t.TempDir(), "gas.gv")
	require.NoError(t, p.WriteDOTFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, p.DOT(), string(data))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1.01e+05", formatValue(101325.0))
	assert.Equal(t, "He", formatValue("He"))
	assert.Equal(t, "first...", formatValue("first\nsecond"))
	assert.Equal(t, "true", formatValue(true))
}

func TestPrettifyLabel(t *testing.T) {
	assert.Equal(t, "Molar Mass", prettifyLabel("molar_mass"))
	assert.Equal(t, "T", prettifyLabel("T"))
}
