package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "gostt-prompt"

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Audio      AudioConfig      `yaml:"audio"`
	Denoise    DenoiseConfig    `yaml:"denoise"`
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Inject     InjectConfig     `yaml:"inject"`
	Notify     NotifyConfig     `yaml:"notify"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	LogLevel   string           `yaml:"log_level"`
}

// TranscribeConfig holds speech-to-text settings.
type TranscribeConfig struct {
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
	BeamSize  int    `yaml:"beam_size"`
	Threads   uint   `yaml:"threads"` // 0 lets whisper.cpp decide
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	Backend          string        `yaml:"backend"` // "malgo" or "portaudio"
	TargetSampleRate int           `yaml:"target_sample_rate"`
	Hop              time.Duration `yaml:"hop"`
	WarmupDelay      time.Duration `yaml:"warmup_delay"`
	MinDuration      time.Duration `yaml:"min_duration"`
}

// DenoiseConfig holds noise reduction settings.
type DenoiseConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Gain         float64 `yaml:"gain"`
	PropDecrease float64 `yaml:"prop_decrease"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
	Mode string   `yaml:"mode"` // "hold" or "toggle"
}

// InjectConfig holds text delivery settings.
type InjectConfig struct {
	Method string `yaml:"method"` // "type", "paste" or "stdout"
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Address string `yaml:"address"` // empty disables the endpoint
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory downloaded models are stored in.
func DefaultModelsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName, "models")
}

// WhisperSampleRate is the only input rate whisper.cpp accepts.
const WhisperSampleRate = 16000

// DefaultModelName is the 8-bit quantized English tiny model, sized for CPU decoding.
const DefaultModelName = "ggml-tiny.en-q8_0.bin"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Transcribe: TranscribeConfig{
			ModelPath: filepath.Join(DefaultModelsDir(), DefaultModelName),
			Language:  "en",
			BeamSize:  5,
		},
		Audio: AudioConfig{
			Backend:          "malgo",
			TargetSampleRate: WhisperSampleRate,
			Hop:              400 * time.Millisecond,
			WarmupDelay:      750 * time.Millisecond,
			MinDuration:      300 * time.Millisecond,
		},
		Denoise: DenoiseConfig{
			Enabled:      true,
			Gain:         2.0,
			PropDecrease: 0.7,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "r"},
			Mode: "toggle",
		},
		Inject: InjectConfig{
			Method: "type",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in model_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath. It returns the
// written path, or "" when a config file already exists there.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := "# " + appName + " configuration\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Transcribe.ModelPath == "" {
		return fmt.Errorf("transcribe.model_path must not be empty")
	}
	if c.Transcribe.BeamSize < 1 {
		return fmt.Errorf("transcribe.beam_size must be >= 1, got %d", c.Transcribe.BeamSize)
	}

	switch c.Audio.Backend {
	case "malgo", "portaudio":
	default:
		return fmt.Errorf("audio.backend must be \"malgo\" or \"portaudio\", got %q", c.Audio.Backend)
	}

	if c.Audio.TargetSampleRate != WhisperSampleRate {
		return fmt.Errorf("audio.target_sample_rate must be %d (the rate whisper decodes), got %d", WhisperSampleRate, c.Audio.TargetSampleRate)
	}
	if c.Audio.Hop <= 0 {
		return fmt.Errorf("audio.hop must be > 0")
	}
	if c.Audio.WarmupDelay < 0 {
		return fmt.Errorf("audio.warmup_delay must not be negative")
	}

	if c.Denoise.PropDecrease <= 0 || c.Denoise.PropDecrease > 1 {
		return fmt.Errorf("denoise.prop_decrease must be within (0, 1], got %g; set denoise.enabled: false to skip noise reduction", c.Denoise.PropDecrease)
	}
	if c.Denoise.Gain <= 0 {
		return fmt.Errorf("denoise.gain must be > 0")
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	switch c.Inject.Method {
	case "type", "paste", "stdout":
	default:
		return fmt.Errorf("inject.method must be \"type\", \"paste\" or \"stdout\", got %q", c.Inject.Method)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to its slog level. Unknown values
// fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
