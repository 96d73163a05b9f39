// Package pipeline runs the background loops that keep derived state in
// sync: stream consumption, counter maintenance, redelivery, and retention.
package pipeline
