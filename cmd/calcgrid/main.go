package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/calcgrid"
	"github.com/vk/calcgrid/graphdef"
	"github.com/vk/calcgrid/internal/cli"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/viz"
)

// main is the entrypoint for the calcgrid graph inspector.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	config, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(config.LogLevel, config.LogFormat, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	g := calcgrid.New(graphName(config.DefsPath))
	if err := graphdef.Apply(ctx, g, config.DefsPath); err != nil {
		return err
	}

	var values calcgrid.Context
	if config.ContextPath != "" {
		values, err = calcgrid.ContextFromJSONFile(config.ContextPath)
		if err != nil {
			return err
		}
	}

	if err := printSummary(outW, g); err != nil {
		return err
	}

	if config.DOTPath != "" {
		opts := []viz.Option{}
		if config.Pretty {
			opts = append(opts, viz.PrettyNames())
		}
		if config.HideRecipes {
			opts = append(opts, viz.HideRecipes())
		}
		if config.Color {
			opts = append(opts, viz.ColorByGeneration())
		}
		if values != nil {
			opts = append(opts, viz.WithValues(values))
		}
		projection, err := viz.New(g, opts...)
		if err != nil {
			return err
		}
		if err := projection.WriteDOTFile(config.DOTPath); err != nil {
			return err
		}
		fmt.Fprintf(outW, "wrote %s\n", config.DOTPath)
	}
	return nil
}

// printSummary writes the node table and the layered evaluation order. A
// cyclic definition fails here, before any rendering.
func printSummary(w io.Writer, g *calcgrid.Graph) error {
	fmt.Fprintf(w, "graph %q: %d nodes\n", g.Name(), len(g.Nodes()))

	for _, name := range g.Nodes() {
		kind, err := g.Kind(name)
		if err != nil {
			return err
		}
		switch kind {
		case calcgrid.StepNode:
			recipe, err := g.Recipe(name)
			if err != nil {
				return err
			}
			deps, err := g.Dependencies(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  step        %s <- %s (recipe %s)\n",
				name, strings.Join(deps, ", "), recipe)
		case calcgrid.ConditionalNode:
			conditions, err := g.Conditions(name)
			if err != nil {
				return err
			}
			possibilities, err := g.Possibilities(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  conditional %s: %s ? %s\n",
				name, strings.Join(conditions, ", "), strings.Join(possibilities, ", "))
		default:
			fmt.Fprintf(w, "  data        %s\n", name)
		}
	}

	generations, err := g.Generations()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "evaluation order:")
	for i, generation := range generations {
		fmt.Fprintf(w, "  %d. %s\n", i+1, strings.Join(generation, ", "))
	}
	return nil
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}

// graphName derives a graph name from the definition path, e.g.
// "defs/ideal_gas.hcl" becomes "ideal_gas".
func graphName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, ".hcl")
}
