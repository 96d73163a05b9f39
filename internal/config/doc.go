// Package config loads pipeline configuration from JSON or YAML files with
// SOCIAL_* environment overlays.
package config
