package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/faqloop/internal/llm"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvBaseURL, EnvModel, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Model != llm.DefaultModel || cfg.LLM.Provider != llm.ProviderOpenAI {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Review.MaxRewrites != 20 || cfg.Review.DetectionBatchSize != 8 {
		t.Errorf("review = %+v", cfg.Review)
	}
	if cfg.Server.Addr != ":8003" || cfg.Export.Mode != ExportBuiltin {
		t.Errorf("server/export = %+v %+v", cfg.Server, cfg.Export)
	}
	if want := filepath.Join(root, "nlu_output", "nlu_pairs.jsonl"); cfg.Paths.QAExport != want {
		t.Errorf("qa export path = %q, want %q", cfg.Paths.QAExport, want)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("FAQLOOP_TEST_KEY", "sk-from-file")
	t.Setenv(EnvModel, "gpt-4o-mini")

	content := `
paths:
  kb: data/kb.json
llm:
  api_key: ${FAQLOOP_TEST_KEY}
  timeout: 5s
review:
  max_rewrites: 3
log:
  format: json
`
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-file" {
		t.Errorf("api key = %q, want expanded value", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, env should override", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 5*time.Second || cfg.LLM.MaxRetries != 2 {
		t.Errorf("timeout=%v retries=%d", cfg.LLM.Timeout, cfg.LLM.MaxRetries)
	}
	if cfg.Review.MaxRewrites != 3 || cfg.Review.DetectionBatchSize != 8 {
		t.Errorf("review = %+v", cfg.Review)
	}
	if cfg.Paths.KB != filepath.Join(root, "data", "kb.json") {
		t.Errorf("kb path = %q", cfg.Paths.KB)
	}
	if cfg.Paths.Clusters != filepath.Join(root, "insights_global", "global_faq_clusters_dedup.json") {
		t.Errorf("unset paths should keep defaults, got %q", cfg.Paths.Clusters)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("FAQLOOP_LOG_LEVEL=debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// .env never overrides a variable that is already set, even to "".
	os.Unsetenv(EnvLogLevel)

	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want value from .env", cfg.Log.Level)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	clearEnv(t)
	if _, err := Load(t.TempDir(), "/nonexistent/faqloop.yaml"); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	path := filepath.Join(root, "bad.yaml")
	os.WriteFile(path, []byte("review: [unclosed"), 0644)
	if _, err := Load(root, path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"provider none", func(c *Config) { c.LLM.Provider = llm.ProviderNone }, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "ollama" }, "llm.provider"},
		{"command without argv", func(c *Config) { c.LLM.Provider = llm.ProviderCommand }, "llm.command"},
		{"zero budget", func(c *Config) { c.Review.MaxRewrites = 0 }, "max_rewrites"},
		{"zero batch", func(c *Config) { c.Review.DetectionBatchSize = -1 }, "detection_batch_size"},
		{"unknown export mode", func(c *Config) { c.Export.Mode = "cron" }, "export.mode"},
		{"command export without argv", func(c *Config) { c.Export.Mode = ExportCommand; c.Export.Command = nil }, "export.command"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/tmp/root")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSample(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(Sample), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("api key = %q, want empty with no env", cfg.LLM.APIKey)
	}
	if cfg.Paths.StateDir != filepath.Join(root, ".faqloop") {
		t.Errorf("state dir = %q", cfg.Paths.StateDir)
	}
}
