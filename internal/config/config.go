package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig is the top-level TOML configuration.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	TickRate   int    `toml:"tick_rate"`

	Redis    RedisConfig    `toml:"redis"`
	Tracker  TrackerConfig  `toml:"tracker"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Sequence SequenceConfig `toml:"sequence"`
}

// RedisConfig points at the optional result store.
type RedisConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// TrackerConfig mirrors tracking.Config in file-friendly units.
type TrackerConfig struct {
	MaxOffsetX         float64   `toml:"max_offset_x"`
	MaxOffsetZ         float64   `toml:"max_offset_z"`
	FailureDelayMs     int       `toml:"failure_delay_ms"`
	TeleportGraceMs    int       `toml:"teleport_grace_ms"`
	FailOnlyAfterStart bool      `toml:"fail_only_after_start"`
	SampleIntervalMs   int       `toml:"sample_interval_ms"`
	Milestones         []float64 `toml:"milestones"`
}

// BridgeConfig overrides the default bridge geometry. Used when the
// sequence is disabled (bridges <= 0) and the server runs one fixed bridge.
type BridgeConfig struct {
	PlankCount       int     `toml:"plank_count"`
	BridgeLength     float64 `toml:"bridge_length"`
	PlankWidth       float64 `toml:"plank_width"`
	PlankGap         float64 `toml:"plank_gap"`
	PlatformsEnabled *bool   `toml:"platforms_enabled"`
}

// SequenceConfig controls how many bridges a session runs through.
type SequenceConfig struct {
	Bridges          int     `toml:"bridges"`
	Loop             bool    `toml:"loop"`
	AdvanceThreshold float64 `toml:"advance_threshold"`
}

// Default returns the configuration used when no file is given.
func Default() ServerConfig {
	return ServerConfig{
		ListenAddr: ":8080",
		TickRate:   30,
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
		Tracker: TrackerConfig{
			MaxOffsetX:         0.6,
			MaxOffsetZ:         0.5,
			FailureDelayMs:     900,
			TeleportGraceMs:    2000,
			FailOnlyAfterStart: true,
			SampleIntervalMs:   200,
			Milestones:         []float64{0.25, 0.50, 0.75, 1.00},
		},
		Sequence: SequenceConfig{
			Bridges:          5,
			Loop:             false,
			AdvanceThreshold: 0.95,
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (ServerConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.TickRate <= 0 {
		return cfg, fmt.Errorf("tick_rate must be positive, got %d", cfg.TickRate)
	}
	return cfg, nil
}

// FailureDelay converts the millisecond field.
func (c TrackerConfig) FailureDelay() time.Duration {
	return time.Duration(c.FailureDelayMs) * time.Millisecond
}

// TeleportGrace converts the millisecond field.
func (c TrackerConfig) TeleportGrace() time.Duration {
	return time.Duration(c.TeleportGraceMs) * time.Millisecond
}

// SampleInterval converts the millisecond field.
func (c TrackerConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}
