package calcgrid

import (
	"encoding/json"
	"fmt"
	"os"
)

// Context maps node names to concrete values. Callers supply one with the
// known inputs of an execution; the engine returns a new one extended with
// every value it computed along the way.
type Context map[string]any

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Has reports whether the context holds a value for the given node name.
func (c Context) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// merge copies every entry of other into c, overwriting existing keys.
func (c Context) merge(other Context) {
	for k, v := range other {
		c[k] = v
	}
}

// JSON renders the context as indented JSON with sorted keys. Values that
// cannot be serialized are replaced by their string representation, so the
// result is always valid JSON.
func (c Context) JSON() (string, error) {
	printable := make(map[string]any, len(c))
	for k, v := range c {
		if _, err := json.Marshal(v); err != nil {
			printable[k] = fmt.Sprint(v)
			continue
		}
		printable[k] = v
	}
	out, err := json.MarshalIndent(printable, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize context: %w", err)
	}
	return string(out), nil
}

// ContextFromJSONFile loads a context from a JSON file of name/value pairs.
// Numbers decode as float64, per encoding/json defaults.
func ContextFromJSONFile(path string) (Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file %s: %w", path, err)
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file %s: %w", path, err)
	}
	return ctx, nil
}
