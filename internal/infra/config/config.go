// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Discussion DiscussionConfig `yaml:"discussion"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
}

// GenerationConfig holds text-generation gateway settings.
type GenerationConfig struct {
	BaseURL        string        `yaml:"base_url"`
	DefaultModel   string        `yaml:"default_model"`
	FallbackModels []string      `yaml:"fallback_models"`
	ConnTimeout    time.Duration `yaml:"conn_timeout"`
	RespTimeout    time.Duration `yaml:"resp_timeout"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the gateway.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// KnowledgeConfig holds encyclopedia lookup settings.
type KnowledgeConfig struct {
	Language       string        `yaml:"language"`
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	CacheSize      int           `yaml:"cache_size"`
	RequestsPerMin int           `yaml:"requests_per_min"`
}

// DiscussionConfig holds discussion run defaults.
type DiscussionConfig struct {
	Rounds           int    `yaml:"rounds"`
	ShowThinking     bool   `yaml:"show_thinking"`
	DefaultArchetype string `yaml:"default_archetype"`
	DataDir          string `yaml:"data_dir"`
}

// TranscriptConfig holds transcript persistence settings.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns the persistent data directory under
// $HOME/.colloquy/data, falling back to "./data".
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".colloquy", "data")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Generation: GenerationConfig{
			BaseURL:        "http://localhost:11434",
			DefaultModel:   "llama3:latest",
			FallbackModels: []string{"llama3:latest"},
			ConnTimeout:    5 * time.Second,
			RespTimeout:    300 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Knowledge: KnowledgeConfig{
			Language:       "en",
			UserAgent:      "colloquy/0.1 (multi-agent discussion engine)",
			Timeout:        15 * time.Second,
			CacheSize:      128,
			RequestsPerMin: 30,
		},
		Discussion: DiscussionConfig{
			Rounds:           3,
			ShowThinking:     true,
			DefaultArchetype: "facilitator",
			DataDir:          dataDir,
		},
		Transcript: TranscriptConfig{
			Enabled: false,
			DBPath:  filepath.Join(dataDir, "transcripts.db"),
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
	}
}

// Load reads the YAML config at path, layered over Defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Generation.BaseURL == "" {
		return fmt.Errorf("generation.base_url must not be empty")
	}
	if c.Generation.DefaultModel == "" {
		return fmt.Errorf("generation.default_model must not be empty")
	}
	if c.Discussion.Rounds < 1 {
		return fmt.Errorf("discussion.rounds must be at least 1, got %d", c.Discussion.Rounds)
	}
	if c.Knowledge.CacheSize < 0 {
		return fmt.Errorf("knowledge.cache_size must not be negative")
	}
	if c.Knowledge.RequestsPerMin < 1 {
		return fmt.Errorf("knowledge.requests_per_min must be at least 1")
	}
	return nil
}

// Path returns the config file path: $COLLOQUY_CONFIG if set, otherwise
// config.yaml in the working directory.
func Path() string {
	if p := os.Getenv("COLLOQUY_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
