package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendWhisper = "whisper"
	BackendGemini  = "gemini"
)

type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Whisper   WhisperConfig   `yaml:"whisper"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Inference InferenceConfig `yaml:"inference"`
	Engine    EngineConfig    `yaml:"engine"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Export    ExportConfig    `yaml:"export"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type PathsConfig struct {
	// Root is the watched folder
	Root string `yaml:"root"`
	// StateDir is the subfolder of Root holding progress and transcripts
	StateDir string `yaml:"state_dir"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
}

type WhisperConfig struct {
	ModelPath  string `yaml:"model_path"`
	BinaryPath string `yaml:"binary_path"`
	Language   string `yaml:"language"`
	Prompt     string `yaml:"prompt"`
	Threads    int    `yaml:"threads"`
}

type GeminiConfig struct {
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"api_keys"`
}

type InferenceConfig struct {
	Backend string `yaml:"backend"`
}

type EngineConfig struct {
	ChunkSeconds float64 `yaml:"chunk_seconds"`
	SampleRate   int     `yaml:"sample_rate"`
}

// ChunkSamples returns the chunk size in samples
func (e EngineConfig) ChunkSamples() int {
	return int(e.ChunkSeconds * float64(e.SampleRate))
}

type WatcherConfig struct {
	SettleDelayMs int `yaml:"settle_delay_ms"`
}

// SettleDelay returns how long event bursts are coalesced before a rescan
func (w WatcherConfig) SettleDelay() time.Duration {
	return time.Duration(w.SettleDelayMs) * time.Millisecond
}

type ExportConfig struct {
	Docx bool   `yaml:"docx"`
	Dir  string `yaml:"dir"`
}

type HTTPConfig struct {
	// Address is host:port; empty disables the observer server
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads, parses and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if keys := os.Getenv("GEMINI_API_KEYS"); keys != "" {
		cfg.Gemini.APIKeys = splitKeys(keys)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return fmt.Errorf("paths.root is required")
	}
	if c.Paths.StateDir == "" {
		c.Paths.StateDir = ".transcripts"
	}
	if strings.ContainsAny(c.Paths.StateDir, `/\`) {
		return fmt.Errorf("paths.state_dir must be a single folder name, got %q", c.Paths.StateDir)
	}

	if c.Inference.Backend == "" {
		c.Inference.Backend = BackendWhisper
	}
	switch c.Inference.Backend {
	case BackendWhisper:
		if c.Whisper.ModelPath == "" {
			return fmt.Errorf("whisper.model_path is required")
		}
		if c.Whisper.BinaryPath == "" {
			return fmt.Errorf("whisper.binary_path is required")
		}
	case BackendGemini:
		if len(c.Gemini.APIKeys) == 0 {
			return fmt.Errorf("gemini.api_keys (or GEMINI_API_KEYS) is required for the gemini backend")
		}
	default:
		return fmt.Errorf("inference.backend %q is not supported", c.Inference.Backend)
	}

	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "auto"
	}
	if c.Whisper.Threads == 0 {
		c.Whisper.Threads = 4
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Engine.SampleRate == 0 {
		c.Engine.SampleRate = 16000
	}
	if c.Engine.ChunkSeconds == 0 {
		c.Engine.ChunkSeconds = 5
	}
	if c.Engine.ChunkSamples() <= 0 {
		return fmt.Errorf("engine.chunk_seconds must be positive")
	}
	if c.Watcher.SettleDelayMs == 0 {
		c.Watcher.SettleDelayMs = 500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
