// Package deadletter parks messages that exhausted their retry budget so
// operators can inspect, requeue, or purge them.
package deadletter
