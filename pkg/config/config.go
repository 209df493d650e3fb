// Package config loads the application configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Race     RaceConfig     `yaml:"race"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Audio    AudioConfig    `yaml:"audio"`
	Ticker   TickerConfig   `yaml:"ticker"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Replay   ReplayConfig   `yaml:"replay"`
}

// RaceConfig holds the pacing engine thresholds.
type RaceConfig struct {
	DeadbandMs              int64   `yaml:"deadband_ms"`
	StartProximityMeters    float64 `yaml:"start_proximity_m"`
	EndProximityMeters      float64 `yaml:"end_proximity_m"`
	MinFinishDistanceMeters float64 `yaml:"min_finish_distance_m"`
	MinPointDistanceMeters  float64 `yaml:"min_point_distance_m"`
}

// FeedbackConfig holds the cue thresholds and cooldowns.
type FeedbackConfig struct {
	MaxReferenceMs     int64    `yaml:"max_reference_ms"`
	WhisperThreshold   float64  `yaml:"whisper_threshold"`
	HeartbeatThreshold float64  `yaml:"heartbeat_threshold"`
	WailThreshold      float64  `yaml:"wail_threshold"`
	WhisperCooldown    Duration `yaml:"whisper_cooldown"`
	HeartbeatCooldown  Duration `yaml:"heartbeat_cooldown"`
	WailCooldown       Duration `yaml:"wail_cooldown"`
}

// AudioConfig holds the asset paths and fade tuning for the audio adapter.
type AudioConfig struct {
	Enabled     bool              `yaml:"enabled"`
	AmbientFile string            `yaml:"ambient_file"`
	CueFiles    map[string]string `yaml:"cue_files"`
	// FadeStep is the maximum ambient volume change applied per tick.
	FadeStep float64 `yaml:"fade_step"`
}

// TickerConfig holds the clock-tick cadence for pacing re-evaluation.
type TickerConfig struct {
	FeedbackLoop Duration `yaml:"feedback_loop"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ReplayConfig holds settings for the synthetic fix source.
type ReplayConfig struct {
	Enabled     bool    `yaml:"enabled"`
	RunID       string  `yaml:"run_id"`
	SpeedFactor float64 `yaml:"speed_factor"`
	JitterM     float64 `yaml:"jitter_m"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Race: RaceConfig{
			DeadbandMs:              2000,
			StartProximityMeters:    30,
			EndProximityMeters:      30,
			MinFinishDistanceMeters: 100,
			MinPointDistanceMeters:  5,
		},
		Feedback: FeedbackConfig{
			MaxReferenceMs:     30000,
			WhisperThreshold:   0.4,
			HeartbeatThreshold: 0.6,
			WailThreshold:      0.5,
			WhisperCooldown:    Duration(8 * time.Second),
			HeartbeatCooldown:  Duration(5 * time.Second),
			WailCooldown:       Duration(10 * time.Second),
		},
		Audio: AudioConfig{
			Enabled:     true,
			AmbientFile: "assets/audio/ambient.wav",
			CueFiles: map[string]string{
				"whisper":   "assets/audio/whisper.wav",
				"heartbeat": "assets/audio/heartbeat.wav",
				"wail":      "assets/audio/wail.wav",
			},
			FadeStep: 0.15,
		},
		Ticker: TickerConfig{
			FeedbackLoop: Duration(1 * time.Second),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/ghostpace.db",
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Replay: ReplayConfig{
			Enabled:     false,
			SpeedFactor: 1.0,
			JitterM:     0,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, defaults are merged with existing values but the file
// is not written back, preserving user formatting and comments.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# GhostPace Configuration
# -----------------------
# Durations use Go syntax: ms, s, m, h (e.g. "8s", "500ms").
# Distances and proximity thresholds are in meters.

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
