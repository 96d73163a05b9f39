// Package pagination provides opaque cursor tokens and the connection
// (edges plus pageInfo) result shape used by list queries.
package pagination
