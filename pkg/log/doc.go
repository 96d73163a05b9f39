// Package log implements structured, leveled logging with pluggable
// formatters and outputs. Components receive a Logger by injection and tag
// entries with Component/Operation fields rather than using a global logger.
package log
