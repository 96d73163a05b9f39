// Package event defines the domain event tagged union, its JSON envelope,
// and schema validation applied at the publisher boundary.
package event
