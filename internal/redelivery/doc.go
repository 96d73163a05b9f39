// Package redelivery schedules failed messages for later reprocessing with
// configurable backoff, backed by a delay-indexed keyspace.
package redelivery
