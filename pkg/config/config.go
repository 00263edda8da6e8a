// Package config loads the small set of tunables the storage engine
// needs at startup: buffer pool size and replacement policy,
// extendible hash table depth and bucket size limits, and the default
// isolation level new transactions start under.
//
// Grounded on leftmike/maho's pkg/config (a single typed struct
// populated from an external file before the engine starts) for the
// shape, replacing its custom flag/text-scanner format with YAML via
// gopkg.in/yaml.v3, the parser github.com/tobiasfamos/KVStore's go.mod
// already pulls in for this corpus.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/n-orlov/coredb/pkg/txn"
)

// Config holds every tunable the engine reads once at startup.
type Config struct {
	BufferPool BufferPoolConfig `yaml:"buffer_pool"`
	HashIndex  HashIndexConfig  `yaml:"hash_index"`
	Isolation  string           `yaml:"isolation"`
}

// BufferPoolConfig sizes the buffer pool and its LRU-K replacer.
type BufferPoolConfig struct {
	PoolSize int `yaml:"pool_size"`
	ReplacerK int `yaml:"replacer_k"`
}

// HashIndexConfig bounds the depth and fanout of every extendible hash
// table the catalog creates.
type HashIndexConfig struct {
	HeaderMaxDepth int `yaml:"header_max_depth"`
	DirMaxDepth    int `yaml:"dir_max_depth"`
	BucketMaxSize  int `yaml:"bucket_max_size"`
}

// Default returns the configuration new engines start from absent an
// override file.
func Default() *Config {
	return &Config{
		BufferPool: BufferPoolConfig{PoolSize: 64, ReplacerK: 2},
		HashIndex:  HashIndexConfig{HeaderMaxDepth: 9, DirMaxDepth: 9, BucketMaxSize: 32},
		Isolation:  "snapshot",
	}
}

// Load reads and parses a YAML config file, filling in Default()
// values for anything the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// IsolationLevel resolves the configured isolation string to the
// txn package's enum, defaulting to snapshot isolation on anything
// unrecognized.
func (c *Config) IsolationLevel() txn.IsolationLevel {
	if c.Isolation == "serializable" {
		return txn.Serializable
	}
	return txn.SnapshotIsolation
}

// Validate reports whether the configuration is usable: pool size,
// replacer k, both hash depths and the bucket size must be positive.
// The buffer pool, replacer, and hash table constructors do not check
// these bounds themselves.
func (c *Config) Validate() error {
	if c.BufferPool.PoolSize <= 0 {
		return fmt.Errorf("config: buffer_pool.pool_size must be positive, got %d", c.BufferPool.PoolSize)
	}
	if c.BufferPool.ReplacerK <= 0 {
		return fmt.Errorf("config: buffer_pool.replacer_k must be positive, got %d", c.BufferPool.ReplacerK)
	}
	if c.HashIndex.HeaderMaxDepth <= 0 || c.HashIndex.DirMaxDepth <= 0 {
		return fmt.Errorf("config: hash_index depths must be positive")
	}
	if c.HashIndex.BucketMaxSize <= 0 {
		return fmt.Errorf("config: hash_index.bucket_max_size must be positive, got %d", c.HashIndex.BucketMaxSize)
	}
	return nil
}
