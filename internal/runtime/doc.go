// Package runtime wires storage, topics, and pipeline components into a
// single-node instance.
package runtime
