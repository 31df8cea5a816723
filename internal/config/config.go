package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/lifecycle"
	"github.com/llehouerou/wavefeed/internal/player"
	"github.com/llehouerou/wavefeed/internal/track"
)

const appName = "wavefeed"

type Config struct {
	Player    PlayerConfig    `koanf:"player"`
	Output    OutputConfig    `koanf:"output"`
	Lifecycle LifecycleConfig `koanf:"lifecycle"`
	Log       LogConfig       `koanf:"log"`
}

// PlayerConfig holds the playback engine settings.
type PlayerConfig struct {
	BufferDuration          time.Duration `koanf:"buffer_duration"`            // audio buffered per track (default: 5s)
	StuckThreshold          time.Duration `koanf:"stuck_threshold"`            // no audio for this long fires TrackStuck (default: 10s)
	CleanupThreshold        time.Duration `koanf:"cleanup_threshold"`          // unpulled for this long stops the track (default: 1m)
	SeekGhosting            *bool         `koanf:"seek_ghosting"`              // keep serving old audio during seeks (default: true)
	WaitForDrain            bool          `koanf:"wait_for_drain"`             // executors wait for their buffer to drain before finishing
	PauseBlocksTimedProvide bool          `koanf:"pause_blocks_timed_provide"` // timed provide waits for resume while paused
}

// OutputConfig describes the frames handed to the output.
type OutputConfig struct {
	SampleRate   int  `koanf:"sample_rate"`   // Hz (default: 48000)
	Channels     int  `koanf:"channels"`      // 1 or 2 (default: 2)
	ChunkSamples int  `koanf:"chunk_samples"` // samples per frame (default: 20ms worth)
	Volume       *int `koanf:"volume"`        // 0-100 (default: 100)
}

// LifecycleConfig holds the idle cleanup polling settings.
type LifecycleConfig struct {
	Interval time.Duration `koanf:"interval"` // default: 10s
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
}

// Load reads the configuration files in order of priority (last wins):
// the XDG config file, ./config.toml and, when set, explicit. An explicit
// path must exist.
func Load(explicit string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if explicit != "" {
		explicit = expandPath(explicit)
		if err := k.Load(file.Provider(explicit), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %w", explicit, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/wavefeed/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetPlayerConfig returns the player configuration with defaults applied.
func (c *Config) GetPlayerConfig() PlayerConfig {
	cfg := c.Player

	if cfg.BufferDuration <= 0 {
		cfg.BufferDuration = frame.DefaultBufferDuration
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = 10 * time.Second
	}
	if cfg.CleanupThreshold <= 0 {
		cfg.CleanupThreshold = time.Minute
	}
	if cfg.SeekGhosting == nil {
		enabled := true
		cfg.SeekGhosting = &enabled
	}

	return cfg
}

// GetOutputConfig returns the output configuration with defaults applied.
func (c *Config) GetOutputConfig() OutputConfig {
	cfg := c.Output

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = frame.DefaultFormat.SampleRate
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		cfg.Channels = frame.DefaultFormat.Channels
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = cfg.SampleRate / 50
	}
	volume := 100
	if cfg.Volume != nil {
		volume = min(max(*cfg.Volume, 0), 100)
	}
	cfg.Volume = &volume

	return cfg
}

// GetLifecycleConfig returns the lifecycle configuration with defaults applied.
func (c *Config) GetLifecycleConfig() LifecycleConfig {
	cfg := c.Lifecycle
	if cfg.Interval <= 0 {
		cfg.Interval = lifecycle.DefaultInterval
	}
	return cfg
}

// LogLevel returns the configured log level, info when unset or invalid.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Format returns the frame format of the output.
func (c *Config) Format() frame.Format {
	out := c.GetOutputConfig()
	return frame.Format{
		Codec:        frame.CodecPCMS16LE,
		Channels:     out.Channels,
		SampleRate:   out.SampleRate,
		ChunkSamples: out.ChunkSamples,
	}
}

// TrackOptions converts the configuration into executor options.
func (c *Config) TrackOptions() track.Options {
	pc := c.GetPlayerConfig()
	return track.Options{
		BufferDuration: pc.BufferDuration,
		SeekGhosting:   *pc.SeekGhosting,
		WaitForDrain:   pc.WaitForDrain,
		Format:         c.Format(),
		Volume:         *c.GetOutputConfig().Volume,
	}
}

// PlayerOptions converts the configuration into player options.
func (c *Config) PlayerOptions() player.Options {
	pc := c.GetPlayerConfig()
	return player.Options{
		Track:                   c.TrackOptions(),
		StuckThreshold:          pc.StuckThreshold,
		CleanupThreshold:        pc.CleanupThreshold,
		PauseBlocksTimedProvide: pc.PauseBlocksTimedProvide,
	}
}
