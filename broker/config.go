package broker

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Config mirrors the teacher's EventBusConfig convention: one struct,
// struct tags for every supported file format plus an env override, and
// a RegisterConfig-style set of defaults.
type Config struct {
	// PoolCapacity is the fixed number of Event slots (spec.md §4.1). Never grows.
	PoolCapacity int `json:"poolCapacity" yaml:"poolCapacity" toml:"pool_capacity" env:"POOL_CAPACITY"`

	// DefaultQueueDepth is used when a watcher does not request a depth,
	// or requests one outside (0, 100*PoolCapacity].
	DefaultQueueDepth int `json:"defaultQueueDepth" yaml:"defaultQueueDepth" toml:"default_queue_depth" env:"DEFAULT_QUEUE_DEPTH"`

	// MaxWatchers bounds the registry (spec.md §3: up to 8 slots).
	MaxWatchers int `json:"maxWatchers" yaml:"maxWatchers" toml:"max_watchers" env:"MAX_WATCHERS"`

	// DedupWindow is the sliding window for back-to-back suppression (spec.md §4.2).
	DedupWindow time.Duration `json:"dedupWindow" yaml:"dedupWindow" toml:"dedup_window" env:"DEDUP_WINDOW"`

	// CoalesceWindow is the wakeup-timer delay (spec.md §4.7).
	CoalesceWindow time.Duration `json:"coalesceWindow" yaml:"coalesceWindow" toml:"coalesce_window" env:"COALESCE_WINDOW"`

	// HighWatermark triggers an immediate wake (spec.md §4.4, MAX_NUM_PENDING).
	HighWatermark int `json:"highWatermark" yaml:"highWatermark" toml:"high_watermark" env:"HIGH_WATERMARK"`

	// DropThresholdPct is the pending/capacity percentage that triggers a
	// full-queue drain for non-privileged watchers (spec.md §4.4).
	DropThresholdPct int `json:"dropThresholdPct" yaml:"dropThresholdPct" toml:"drop_threshold_pct" env:"DROP_THRESHOLD_PCT"`

	// UnmountTickInterval and UnmountMaxTicks bound the barrier (spec.md §4.8).
	UnmountTickInterval time.Duration `json:"unmountTickInterval" yaml:"unmountTickInterval" toml:"unmount_tick_interval" env:"UNMOUNT_TICK_INTERVAL"`
	UnmountMaxTicks     int           `json:"unmountMaxTicks" yaml:"unmountMaxTicks" toml:"unmount_max_ticks" env:"UNMOUNT_MAX_TICKS"`

	// HardlinkFanoutCap bounds sibling replication (spec.md §4.9).
	HardlinkFanoutCap int `json:"hardlinkFanoutCap" yaml:"hardlinkFanoutCap" toml:"hardlink_fanout_cap" env:"HARDLINK_FANOUT_CAP"`

	// DiagnosticRateLimit bounds exhaustion log messages (spec.md §4.1).
	DiagnosticRateLimit time.Duration `json:"diagnosticRateLimit" yaml:"diagnosticRateLimit" toml:"diagnostic_rate_limit" env:"DIAGNOSTIC_RATE_LIMIT"`

	// IgnoredPathPrefixes lists directories exempt from delivery to
	// non-privileged watchers (spec.md §4.5); nil uses ignoredpath.DefaultPrefixes.
	IgnoredPathPrefixes []string `json:"ignoredPathPrefixes" yaml:"ignoredPathPrefixes" toml:"ignored_path_prefixes" env:"-"`

	// Logger receives structured diagnostics; defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-" toml:"-"`
}

// DefaultConfig returns the spec.md-documented defaults (pool=4096,
// coalesce=10ms, high watermark=16, drop threshold=75%, unmount
// ticks=10x1s, hardlink cap=128).
func DefaultConfig() *Config {
	return &Config{
		PoolCapacity:        4096,
		DefaultQueueDepth:   1024,
		MaxWatchers:         8,
		DedupWindow:         time.Second,
		CoalesceWindow:      10 * time.Millisecond,
		HighWatermark:       16,
		DropThresholdPct:    75,
		UnmountTickInterval: time.Second,
		UnmountMaxTicks:     10,
		HardlinkFanoutCap:   128,
		DiagnosticRateLimit: 10 * time.Second,
	}
}

// Load reads a TOML or YAML config file (chosen by extension) over the
// defaults, then applies environment variable overrides prefixed with
// FSBROKER_, the same "defaults, file, env" layering the teacher's
// modular config feeders use. Only the integer fields listed in
// applyEnvOverrides are read from the environment; duration, list and
// logger fields are not.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("fsbroker: reading config %s: %w", path, err)
		}
		switch {
		case strings.HasSuffix(path, ".toml"):
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("fsbroker: decoding toml config: %w", err)
			}
		case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("fsbroker: decoding yaml config: %w", err)
			}
		default:
			return nil, fmt.Errorf("fsbroker: unrecognized config extension for %s", path)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	overrides := map[string]*int{
		"FSBROKER_POOL_CAPACITY":       &cfg.PoolCapacity,
		"FSBROKER_DEFAULT_QUEUE_DEPTH": &cfg.DefaultQueueDepth,
		"FSBROKER_MAX_WATCHERS":        &cfg.MaxWatchers,
		"FSBROKER_HIGH_WATERMARK":      &cfg.HighWatermark,
		"FSBROKER_DROP_THRESHOLD_PCT":  &cfg.DropThresholdPct,
		"FSBROKER_UNMOUNT_MAX_TICKS":   &cfg.UnmountMaxTicks,
		"FSBROKER_HARDLINK_FANOUT_CAP": &cfg.HardlinkFanoutCap,
	}
	for env, field := range overrides {
		raw, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		v, err := cast.ToIntE(raw)
		if err != nil {
			return fmt.Errorf("fsbroker: parsing env %s=%q: %w", env, raw, err)
		}
		*field = v
	}
	return nil
}
