// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
	"github.com/oszuidwest/zwfm-mictest/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort                     = 8080
	DefaultRecordingMaxDurationSeconds = 300 // 5 minutes: a mic check, not a broadcast log
)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary (empty = use PATH)
	Port       int    `json:"port"`        // HTTP server port
}

// AudioConfig holds audio input settings.
type AudioConfig struct {
	Input       string  `json:"input"`        // Preferred input device identifier (empty = system default)
	SampleRate  int     `json:"sample_rate"`  // Requested capture sample rate in Hz
	WindowSize  int     `json:"window_size"`  // Time-domain analysis window size (power of two)
	ThresholdDB float64 `json:"threshold_db"` // Silence threshold in dB RMS
}

// VisualConfig holds visualization frame dimensions.
type VisualConfig struct {
	Width  int `json:"width"`  // Waveform frame width in pixels
	Height int `json:"height"` // Frame height in pixels
}

// RecordingConfig holds recording settings.
type RecordingConfig struct {
	MaxDurationSeconds int `json:"max_duration_seconds"` // Auto-stop limit (0 = no limit)
}

// EventLogConfig holds event log settings.
type EventLogConfig struct {
	Path string `json:"path"` // JSONL event log path (empty = disabled)
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System    SystemConfig    `json:"system"`
	Audio     AudioConfig     `json:"audio"`
	Visual    VisualConfig    `json:"visual"`
	Recording RecordingConfig `json:"recording"`
	EventLog  EventLogConfig  `json:"event_log"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			Port: DefaultWebPort,
		},
		Audio: AudioConfig{
			SampleRate:  types.DefaultSampleRate,
			WindowSize:  types.DefaultWindowSize,
			ThresholdDB: types.SilenceThresholdDB,
		},
		Recording: RecordingConfig{
			MaxDurationSeconds: DefaultRecordingMaxDurationSeconds,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	return c.validate()
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	if c.System.Port < 1 || c.System.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.System.Port)
	}
	if c.Audio.WindowSize < 256 || c.Audio.WindowSize&(c.Audio.WindowSize-1) != 0 {
		return fmt.Errorf("invalid window_size %d: must be a power of two >= 256", c.Audio.WindowSize)
	}
	if c.Audio.ThresholdDB > 0 || c.Audio.ThresholdDB < types.FloorDB {
		return fmt.Errorf("invalid threshold_db %.1f: must be between %.0f and 0", c.Audio.ThresholdDB, types.FloorDB)
	}
	if c.Recording.MaxDurationSeconds < 0 {
		return fmt.Errorf("invalid max_duration_seconds %d: must not be negative", c.Recording.MaxDurationSeconds)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = types.DefaultSampleRate
	}
	if c.Audio.WindowSize == 0 {
		c.Audio.WindowSize = types.DefaultWindowSize
	}
	if c.Audio.ThresholdDB == 0 {
		c.Audio.ThresholdDB = types.SilenceThresholdDB
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Getters for individual settings ---

// AudioInput returns the configured audio input device.
func (c *Config) AudioInput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Audio.Input
}

// GetFFmpegPath returns the configured FFmpeg binary path.
func (c *Config) GetFFmpegPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.FFmpegPath
}

// --- Setters for individual settings ---

// SetAudioInput updates the preferred input device and saves the configuration.
func (c *Config) SetAudioInput(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Input = input
	return c.saveLocked()
}

// SetSilenceThreshold updates the silence threshold and saves the configuration.
func (c *Config) SetSilenceThreshold(threshold float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.ThresholdDB = threshold
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	WebPort    int
	FFmpegPath string

	// Audio
	AudioInput       string
	SampleRate       int
	WindowSize       int
	SilenceThreshold float64

	// Visual
	VisualWidth  int
	VisualHeight int

	// Recording
	RecordingMaxDurationSeconds int

	// Event log
	EventLogPath string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		WebPort:    cmp.Or(c.System.Port, DefaultWebPort),
		FFmpegPath: c.System.FFmpegPath,

		AudioInput:       c.Audio.Input,
		SampleRate:       cmp.Or(c.Audio.SampleRate, types.DefaultSampleRate),
		WindowSize:       cmp.Or(c.Audio.WindowSize, types.DefaultWindowSize),
		SilenceThreshold: cmp.Or(c.Audio.ThresholdDB, types.SilenceThresholdDB),

		VisualWidth:  c.Visual.Width,
		VisualHeight: c.Visual.Height,

		RecordingMaxDurationSeconds: c.Recording.MaxDurationSeconds,

		EventLogPath: c.EventLog.Path,
	}
}

// HasEventLog reports whether an event log path is configured.
func (s *Snapshot) HasEventLog() bool {
	return s.EventLogPath != ""
}
