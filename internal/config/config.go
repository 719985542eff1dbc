// Package config loads the node's configuration surface from spec.md §6:
// network, dir_path, skip_pow_verification, the pebble storage knobs
// (parallelism, cache_size_bytes, write_buffer_bytes, compression), the
// pruning policy (target_topoheight or checkpoint), and ghostdag_k. It
// follows the teacher's pkg/config/config.go shape — a single
// mapstructure-tagged struct, spf13/viper reading a YAML file plus
// SYNN_ENV-style environment overlay — generalized to this core's own
// section names.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ghostdagcore/internal/storage"
)

// PebbleConfig mirrors spec.md §6's `pebble: {...}` block.
type PebbleConfig struct {
	Parallelism      int    `mapstructure:"parallelism"`
	CacheSizeBytes   int64  `mapstructure:"cache_size_bytes"`
	WriteBufferBytes int    `mapstructure:"write_buffer_bytes"`
	Compression      string `mapstructure:"compression"` // "none" | "snappy" | "zstd"; see note on ToStorageOptions
}

// PruningConfig mirrors spec.md §6's `pruning: {...}` block. Exactly one
// of TargetTopoheight or Checkpoint is meaningful at a time, mirroring
// the spec's "target_topoheight|checkpoint" either/or phrasing.
type PruningConfig struct {
	TargetTopoheight uint64 `mapstructure:"target_topoheight"`
	Checkpoint       string `mapstructure:"checkpoint"`
}

// Config is the unified node configuration spec.md §6 names.
type Config struct {
	Network             string        `mapstructure:"network"`
	DirPath             string        `mapstructure:"dir_path"`
	SkipPowVerification bool          `mapstructure:"skip_pow_verification"`
	GhostdagK           int           `mapstructure:"ghostdag_k"`
	Pebble              PebbleConfig  `mapstructure:"pebble"`
	Pruning             PruningConfig `mapstructure:"pruning"`

	// MetricsAddr is the listen address cmd/node's daemon exposes its
	// Prometheus /metrics endpoint on, mirroring the teacher's
	// HealthLogger.StartMetricsServer. Not named by spec.md §6, but
	// ambient operational surface the Non-goals don't exclude.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// ExecutionWorkers bounds internal/execution's worker pool per
	// block; 0 lets blockprocessor.New fall back to its own default.
	ExecutionWorkers int `mapstructure:"execution_workers"`

	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// defaults returns the Config that Load unmarshals over, so a config file
// only needs to name what it overrides, the same "default -> merge
// env-specific" two-pass Load the teacher's pkg/config.Load uses. It does
// not register any key with viper.
func defaults() *Config {
	return &Config{
		Network:             "mainnet",
		DirPath:              "./data",
		SkipPowVerification: false,
		GhostdagK:           18,
		MetricsAddr:         ":9090",
		ExecutionWorkers:    0,
		Pebble: PebbleConfig{
			Parallelism:      4,
			CacheSizeBytes:   64 << 20,
			WriteBufferBytes: 4 << 20,
			Compression:      "none",
		},
	}
}

// Load reads config/<env>.yaml (falling back to config/default.yaml when
// env is empty) and unmarshals it into Config. GHOSTDAGCORE_-prefixed
// environment variables override only keys that the config file itself
// names; viper has no default registered for any other key, so Unmarshal
// does not look such keys up in the environment. Like the teacher's Load, a missing
// config file is tolerated — defaults() already populated every field —
// but a malformed one that exists is not.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // optional .env overlay, ignored if absent

	v := viper.New()
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("GHOSTDAGCORE")
	v.AutomaticEnv()

	cfg := defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: seed defaults: %w", err)
	}

	name := "default"
	if env != "" {
		name = env
	}
	v.SetConfigName(name)
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			return nil, fmt.Errorf("config: read %s config: %w", name, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration using the GHOSTDAGCORE_ENV environment
// variable, mirroring the teacher's LoadFromEnv/SYNN_ENV convention.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("GHOSTDAGCORE_ENV"))
}

// ToStorageOptions translates the pebble section into storage.Options.
// Compression is deliberately left unset (storage.Open then falls back
// to its own per-column-family default policy): storage's compression
// policy is keyed per-CF and that type is unexported, so a single scalar
// config knob cannot select it from outside the package without
// widening storage's public surface beyond what spec.md's flat
// `compression: {none|snappy|zstd}` knob implies is needed.
func (c *Config) ToStorageOptions() storage.Options {
	return storage.Options{
		DirPath:          c.DirPath,
		Parallelism:      c.Pebble.Parallelism,
		CacheSizeBytes:   c.Pebble.CacheSizeBytes,
		WriteBufferBytes: c.Pebble.WriteBufferBytes,
	}
}
