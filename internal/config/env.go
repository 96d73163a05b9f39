package config

import (
	"os"
	"strconv"
)

// FromEnv overlays SOCIAL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("SOCIAL_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("SOCIAL_PARTITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Partitions = n
		}
	}
	if v := os.Getenv("SOCIAL_EVENTS_TOPIC"); v != "" {
		cfg.EventsTopic = v
	}
	if v := os.Getenv("SOCIAL_CHANGE_FEED_TOPIC"); v != "" {
		cfg.ChangeFeedTopic = v
	}
	if v := os.Getenv("SOCIAL_PUBLISHER_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.ChunkSize = n
		}
	}
	if v := os.Getenv("SOCIAL_PUBLISHER_PAYLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.PayloadMaxBytes = n
		}
	}
	if v := os.Getenv("SOCIAL_CONSUMER_GROUP"); v != "" {
		cfg.Consumer.Group = v
	}
	if v := os.Getenv("SOCIAL_CONSUMER_FETCH_MAX_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.FetchMaxRecords = n
		}
	}
	if v := os.Getenv("SOCIAL_CONSUMER_FETCH_MAX_WAIT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.FetchMaxWaitMs = n
		}
	}
	if v := os.Getenv("SOCIAL_CONSUMER_RETRY_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.RetryBudget = n
		}
	}
	if v := os.Getenv("SOCIAL_CONSUMER_FILTER"); v != "" {
		cfg.Consumer.Filter = v
	}
	if v := os.Getenv("SOCIAL_CACHE_PREVIEW_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.PreviewLimit = n
		}
	}
	if v := os.Getenv("SOCIAL_LOG_RETENTION_MAX_AGE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Log.RetentionMaxAgeMs = n
		}
	}
	if v := os.Getenv("SOCIAL_LOG_RETENTION_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Log.RetentionMaxBytes = n
		}
	}
}
