// Package config loads cmd/mobsctl's tuning file: cache capacity limits,
// the pool's clear-unlocked switch, and the demo XML cipher's passphrase,
// read from a TOML document
// into a typed struct before use.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level document cmd/mobsctl reads at startup.
type Config struct {
	Cache CacheConfig `toml:"cache"`
	Pool  PoolConfig  `toml:"pool"`
	XML   XMLConfig   `toml:"xml"`
}

// CacheConfig tunes the object cache.
type CacheConfig struct {
	MaxEntries int `toml:"max_entries"`
	MaxBytes   int `toml:"max_bytes"`
}

// PoolConfig tunes the named object pool.
type PoolConfig struct {
	// AutoClearUnlocked, when true, has the CLI call ClearUnlocked at the
	// end of every pool subcommand invocation.
	AutoClearUnlocked bool `toml:"auto_clear_unlocked"`
}

// XMLConfig supplies the passphrase/salt for the demo encryption cipher.
type XMLConfig struct {
	Passphrase string `toml:"passphrase"`
	Salt       string `toml:"salt"`
}

// Default returns the configuration cmd/mobsctl falls back to when no file
// is supplied.
func Default() Config {
	return Config{
		Cache: CacheConfig{MaxEntries: 1000, MaxBytes: 1 << 20},
		Pool:  PoolConfig{AutoClearUnlocked: true},
		XML:   XMLConfig{Passphrase: "mobsctl-demo-passphrase", Salt: "mobsctl-demo-salt"},
	}
}

// Load reads and decodes a TOML config file at path, layering it over
// Default() so a partial file only overrides what it declares.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}
