// Package pebblestore wraps Pebble with a durability policy, a metrics hook,
// and an add-merge operator used for lost-update-free counters.
package pebblestore
