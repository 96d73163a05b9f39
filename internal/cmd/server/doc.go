// Package serverrun boots the runtime and pipeline for the server command.
package serverrun
