// Package id generates 128-bit time-ordered identifiers whose string form
// sorts in generation order.
package id
