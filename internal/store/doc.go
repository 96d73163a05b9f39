// Package store is the single-table entity layer: profiles, posts,
// relationship edges, and denormalized counters. Relationship mutations
// emit row-level change records consumed by the counter maintainer.
package store
