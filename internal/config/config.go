package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Namespace       string            `json:"namespace" yaml:"namespace"`
	Partitions      int               `json:"partitions" yaml:"partitions"`
	EventsTopic     string            `json:"eventsTopic" yaml:"eventsTopic"`
	ChangeFeedTopic string            `json:"changeFeedTopic" yaml:"changeFeedTopic"`
	Publisher       PublisherDefaults `json:"publisher" yaml:"publisher"`
	Consumer        ConsumerDefaults  `json:"consumer" yaml:"consumer"`
	Cache           CacheDefaults     `json:"cache" yaml:"cache"`
	Log             LogDefaults       `json:"log" yaml:"log"`
}

// PublisherDefaults bounds outbound event batches.
type PublisherDefaults struct {
	ChunkSize       int `json:"chunkSize" yaml:"chunkSize"`
	PayloadMaxBytes int `json:"payloadMaxBytes" yaml:"payloadMaxBytes"`
}

// ConsumerDefaults controls batch fetching and retry routing. RetryBudget is
// the number of redeliveries after the initial delivery; a record that fails
// them all is dead-lettered.
type ConsumerDefaults struct {
	Group           string `json:"group" yaml:"group"`
	FetchMaxRecords int    `json:"fetchMaxRecords" yaml:"fetchMaxRecords"`
	FetchMaxWaitMs  int    `json:"fetchMaxWaitMs" yaml:"fetchMaxWaitMs"`
	RetryBudget     int    `json:"retryBudget" yaml:"retryBudget"`
	Filter          string `json:"filter" yaml:"filter"`
}

// CacheDefaults bounds denormalized read-side structures.
type CacheDefaults struct {
	PreviewLimit int `json:"previewLimit" yaml:"previewLimit"`
}

// LogDefaults controls event log retention. Zero disables a bound.
type LogDefaults struct {
	RetentionMaxAgeMs int64 `json:"retentionMaxAgeMs" yaml:"retentionMaxAgeMs"`
	RetentionMaxBytes int64 `json:"retentionMaxBytes" yaml:"retentionMaxBytes"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Namespace:       "social",
		Partitions:      16,
		EventsTopic:     "events",
		ChangeFeedTopic: "changefeed",
		Publisher: PublisherDefaults{
			ChunkSize:       500,
			PayloadMaxBytes: 1 << 20,
		},
		Consumer: ConsumerDefaults{
			Group:           "cache-sync",
			FetchMaxRecords: 100,
			FetchMaxWaitMs:  10_000,
			RetryBudget:     2,
		},
		Cache: CacheDefaults{
			PreviewLimit: 10,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
