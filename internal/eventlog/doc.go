// Package eventlog implements a partitioned, append-only event log on Pebble
// with durable per-group cursors, blocking batch reads, and retention trims.
// Ordering is guaranteed within a partition only; partition keys route via
// murmur3 so the same key always lands on the same partition.
package eventlog
