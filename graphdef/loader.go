package graphdef

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/calcgrid"
	"github.com/vk/calcgrid/internal/ctxlog"
)

// fileRoot decodes all recognized top-level blocks from a definition file.
type fileRoot struct {
	Steps        []*stepBlock        `hcl:"step,block"`
	Conditionals []*conditionalBlock `hcl:"conditional,block"`
	Values       []*valuesBlock      `hcl:"values,block"`
}

// stepBlock is the HCL shape of a step declaration.
type stepBlock struct {
	Name   string   `hcl:"name,label"`
	Recipe string   `hcl:"recipe"`
	Inputs []string `hcl:"inputs,optional"`
}

// conditionalBlock is the HCL shape of a conditional declaration.
type conditionalBlock struct {
	Name          string   `hcl:"name,label"`
	Conditions    []string `hcl:"conditions"`
	Possibilities []string `hcl:"possibilities"`
}

// valuesBlock carries definition-time constants as free-form attributes.
type valuesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// LoadFile creates a new graph with the given name and applies one
// definition file to it. Recipe bindings stay on the Go side: the returned
// graph still needs BindRecipes and Finalize before it can execute.
func LoadFile(ctx context.Context, name, path string) (*calcgrid.Graph, error) {
	g := calcgrid.New(name)
	if err := Apply(ctx, g, path); err != nil {
		return nil, err
	}
	return g, nil
}

// Apply parses every definition file reachable from the given paths (a path
// may be a single .hcl file or a directory searched recursively) and applies
// the declared steps, conditionals, and constant values to the graph.
func Apply(ctx context.Context, g *calcgrid.Graph, paths ...string) error {
	logger := ctxlog.FromContext(ctx).With("graph", g.Name())
	logger.Debug("Definition loader started.", "path_count", len(paths))

	files, err := findDefinitionFiles(paths)
	if err != nil {
		return err
	}
	logger.Debug("Discovered definition files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse definition file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return fmt.Errorf("failed to decode definition file %s: %w", file, diags)
		}

		if err := applyRoot(g, &root); err != nil {
			return fmt.Errorf("in definition file %s: %w", file, err)
		}
		logger.Debug("Applied definition file.", "file", file,
			"steps", len(root.Steps), "conditionals", len(root.Conditionals))
	}
	return nil
}

func applyRoot(g *calcgrid.Graph, root *fileRoot) error {
	for _, step := range root.Steps {
		g.AddStep(step.Name, step.Recipe, step.Inputs...)
	}
	for _, cond := range root.Conditionals {
		g.AddConditional(cond.Name, cond.Conditions, cond.Possibilities)
	}
	for _, values := range root.Values {
		attrs, diags := values.Body.JustAttributes()
		if diags.HasErrors() {
			return fmt.Errorf("invalid values block: %w", diags)
		}
		for _, attr := range sortedAttributes(attrs) {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("value '%s' must be a constant expression: %w", attr.Name, diags)
			}
			native, err := ctyToNative(val)
			if err != nil {
				return fmt.Errorf("value '%s': %w", attr.Name, err)
			}
			g.SetDefault(attr.Name, native)
		}
	}
	return nil
}

// findDefinitionFiles walks the given paths and returns a sorted, de-duplicated
// list of .hcl files.
func findDefinitionFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read definition path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, ".hcl") {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk definition path %s: %w", path, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// sortedAttributes returns a values block's attributes in name order, so
// defaults apply deterministically.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
