// Package cache holds the read-optimized documents the stream consumer
// materializes from domain events: post summaries, profile stats, and
// bounded per-author preview lists.
package cache
