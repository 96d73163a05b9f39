package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Namespace != "social" {
		t.Fatalf("default namespace")
	}
	if cfg.Partitions != 16 {
		t.Fatalf("partitions default")
	}
	if cfg.Publisher.ChunkSize != 500 {
		t.Fatalf("chunk size default")
	}
	if cfg.Consumer.RetryBudget != 2 {
		t.Fatalf("retry budget default")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "socialsync.json")
	data := []byte(`{"namespace":"prod","partitions":32,"consumer":{"group":"g1","fetchMaxRecords":50,"fetchMaxWaitMs":2000,"retryBudget":3}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Namespace != "prod" {
		t.Fatalf("expected prod")
	}
	if cfg.Partitions != 32 {
		t.Fatalf("expected 32")
	}
	if cfg.Consumer.FetchMaxRecords != 50 {
		t.Fatalf("expected 50")
	}
}

func TestLoadYAMLMatchesJSON(t *testing.T) {
	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "c.json")
	yamlFile := filepath.Join(dir, "c.yaml")
	if err := os.WriteFile(jsonFile, []byte(`{"namespace":"prod","partitions":8,"publisher":{"chunkSize":100}}`), 0644); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := os.WriteFile(yamlFile, []byte("namespace: prod\npartitions: 8\npublisher:\n  chunkSize: 100\n"), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	fromJSON, err := Load(jsonFile)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	fromYAML, err := Load(yamlFile)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if fromJSON != fromYAML {
		t.Fatalf("json and yaml configs differ: %+v vs %+v", fromJSON, fromYAML)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("SOCIAL_NAMESPACE", "staging")
	os.Setenv("SOCIAL_PARTITIONS", "24")
	os.Setenv("SOCIAL_CONSUMER_RETRY_BUDGET", "5")
	t.Cleanup(func() {
		os.Unsetenv("SOCIAL_NAMESPACE")
		os.Unsetenv("SOCIAL_PARTITIONS")
		os.Unsetenv("SOCIAL_CONSUMER_RETRY_BUDGET")
	})
	FromEnv(&cfg)
	if cfg.Namespace != "staging" {
		t.Fatalf("env override namespace")
	}
	if cfg.Partitions != 24 {
		t.Fatalf("env override partitions")
	}
	if cfg.Consumer.RetryBudget != 5 {
		t.Fatalf("env override retry budget")
	}
}
