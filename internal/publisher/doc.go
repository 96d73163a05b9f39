// Package publisher ships validated domain events into the partitioned event
// log, tolerating partial failure on large batches.
package publisher
