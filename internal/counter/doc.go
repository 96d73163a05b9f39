// Package counter maintains denormalized follower, following, and like
// counters by folding the store's row-level change feed into atomic
// adjustments.
package counter
