// Package clientcmd implements the one-shot CLI operations against an
// embedded runtime.
package clientcmd
