// Package config loads faqloop settings from faqloop.yaml, an optional .env
// file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/nvandessel/faqloop/internal/detect"
	"github.com/nvandessel/faqloop/internal/llm"
	"github.com/nvandessel/faqloop/internal/review"
	"github.com/nvandessel/faqloop/internal/store"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up under the project root.
const FileName = "faqloop.yaml"

// Export modes.
const (
	ExportBuiltin = "builtin"
	ExportCommand = "command"
)

// Environment variables that override file settings.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvModel    = "REVIEW_OPENAI_MODEL"
	EnvLogLevel = "FAQLOOP_LOG_LEVEL"
)

// Config is the full faqloop configuration.
type Config struct {
	Paths  store.Paths      `yaml:"paths"`
	LLM    llm.ClientConfig `yaml:"llm"`
	Review ReviewConfig     `yaml:"review"`
	Export ExportConfig     `yaml:"export"`
	Server ServerConfig     `yaml:"server"`
	Log    LogConfig        `yaml:"log"`
}

// ReviewConfig tunes propagation.
type ReviewConfig struct {
	// MaxRewrites caps the rows one correction may change
	MaxRewrites int `yaml:"max_rewrites"`

	// DetectionBatchSize is the number of rows per detection call
	DetectionBatchSize int `yaml:"detection_batch_size"`
}

// ExportConfig selects how the flat export is regenerated.
type ExportConfig struct {
	Mode    string        `yaml:"mode"`
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present, with
// paths laid out under root.
func Default(root string) *Config {
	return &Config{
		Paths: store.DefaultPaths(root),
		LLM:   llm.DefaultConfig(),
		Review: ReviewConfig{
			MaxRewrites:        review.DefaultMaxRewrites,
			DetectionBatchSize: detect.DefaultBatchSize,
		},
		Export: ExportConfig{
			Mode:    ExportBuiltin,
			Command: []string{"make", "nlu-export"},
			Timeout: 10 * time.Minute,
		},
		Server: ServerConfig{Addr: ":8003"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration for root. An empty path means
// <root>/faqloop.yaml, which may be absent; an explicit path must exist.
// <root>/.env is loaded first without overriding variables already set, so
// ${VAR} references in the file and the environment overrides see it.
func Load(root, path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default(root)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.Paths = cfg.Paths.Resolve(root)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// applyDefaults fills zero values a file may have blanked out.
func (c *Config) applyDefaults() {
	def := llm.DefaultConfig()
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.Model
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = def.Timeout
	}
	if c.Export.Mode == "" {
		c.Export.Mode = ExportBuiltin
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8003"
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderNone:
	case llm.ProviderCommand:
		if len(c.LLM.Command) == 0 {
			return fmt.Errorf("config: llm.command is required for provider %q", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Timeout < 0 || c.LLM.MaxRetries < 0 || c.LLM.RequestsPerMinute < 0 {
		return errors.New("config: llm timeout, max_retries and requests_per_minute must not be negative")
	}
	if c.Review.MaxRewrites <= 0 {
		return fmt.Errorf("config: review.max_rewrites must be positive, got %d", c.Review.MaxRewrites)
	}
	if c.Review.DetectionBatchSize <= 0 {
		return fmt.Errorf("config: review.detection_batch_size must be positive, got %d", c.Review.DetectionBatchSize)
	}
	switch c.Export.Mode {
	case ExportBuiltin:
	case ExportCommand:
		if len(c.Export.Command) == 0 {
			return errors.New("config: export.command is required in command mode")
		}
	default:
		return fmt.Errorf("config: unknown export.mode %q", c.Export.Mode)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Sample is the commented config written by `faqloop init`.
const Sample = `# faqloop configuration. Relative paths resolve against the project root.
paths:
  kb: knowledge_base/kb_faq_ru.json
  clusters: insights_global/global_faq_clusters_dedup.json
  qa_export: nlu_output/nlu_pairs.jsonl
  corrections: corrections/corrections.jsonl
  call_records: insights_per_call
  state_dir: .faqloop

llm:
  provider: openai          # openai | command | none
  model: gpt-5.1            # REVIEW_OPENAI_MODEL overrides
  api_key: ${OPENAI_API_KEY}
  timeout: 60s
  max_retries: 2
  retry_delay: 2s
  requests_per_minute: 0

review:
  max_rewrites: 20
  detection_batch_size: 8

export:
  mode: builtin             # builtin | command
  command: [make, nlu-export]
  timeout: 10m

server:
  addr: ":8003"

log:
  level: info
  format: console           # console | json
`
