package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Config holds the settings of one inspector invocation.
type Config struct {
	// DefsPath is a single .hcl definition file or a directory of them.
	DefsPath string
	// ContextPath optionally points at a JSON file with known values; when
	// set, the values are shown on the rendered nodes.
	ContextPath string
	// DOTPath optionally names a file to write the Graphviz projection to.
	DOTPath string

	Pretty      bool
	HideRecipes bool
	Color       bool

	LogFormat string
	LogLevel  string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("calcgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
calcgrid - inspect dependency graph definitions.

Usage:
  calcgrid [options] [DEFS_PATH]

Arguments:
  DEFS_PATH
    Path to a single .hcl definition file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	defsFlag := flagSet.String("defs", "", "Path to the definition file or directory.")
	dFlag := flagSet.String("d", "", "Path to the definition file or directory (shorthand).")
	contextFlag := flagSet.String("context", "", "Path to a JSON file with known context values.")
	dotFlag := flagSet.String("dot", "", "Write the Graphviz projection to this file.")
	prettyFlag := flagSet.Bool("pretty", false, "Render node names in a human-friendly form.")
	hideRecipesFlag := flagSet.Bool("hide-recipes", false, "Omit recipe names from step labels.")
	colorFlag := flagSet.Bool("color", false, "Fill nodes by topological generation.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *defsFlag != "" {
		path = *defsFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Definition path determined.", "path", path)

	if path == "" {
		slog.Debug("No definition path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config := &Config{
		DefsPath:    path,
		ContextPath: *contextFlag,
		DOTPath:     *dotFlag,
		Pretty:      *prettyFlag,
		HideRecipes: *hideRecipesFlag,
		Color:       *colorFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
