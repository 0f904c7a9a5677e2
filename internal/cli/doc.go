// Package cli parses command-line arguments for the graph inspector,
// validates user input, and handles process-level concerns like exit codes.
package cli
