// Package consumer drains the event stream into the store and read cache.
// It decodes and filters records, isolates per-record failures, and routes
// failed deliveries through redelivery and the dead-letter queue.
package consumer
