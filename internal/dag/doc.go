// Package dag provides general-purpose primitives for directed acyclic
// graphs keyed by string IDs: node and edge storage, cycle detection, and
// layered topological generations. It knows nothing about steps, recipes,
// or values; higher layers map their domain onto it.
package dag
