package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yamlContent string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LOGSTORE_DSN", "postgres://localhost/security_logs")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfig(t, `
llm:
  endpoint: "https://example.openai.azure.com"
`)

	cfg, err := Load(path, "test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.LLM.Provider != "azure-openai" {
		t.Errorf("expected default provider azure-openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LogStore.Driver != "postgres" {
		t.Errorf("expected default driver postgres, got %s", cfg.LogStore.Driver)
	}
	if cfg.Chat.MaxToolRounds != 5 {
		t.Errorf("expected default max_tool_rounds=5, got %d", cfg.Chat.MaxToolRounds)
	}
	if cfg.Chat.MaxTurns != 30 {
		t.Errorf("expected default max_turns=30, got %d", cfg.Chat.MaxTurns)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("expected default llm timeout=60s, got %v", cfg.LLM.Timeout)
	}
	if cfg.Knowledge.Enabled() {
		t.Error("expected knowledge base disabled without KB_DATABASE_URL")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfig(t, `
env: "test"
llm:
  provider: "azure-openai"
  endpoint: "https://yaml.example.com"
  model: "gpt-4o"
logstore:
  driver: "postgres"
`)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("LOGSTORE_DRIVER", "mssql")

	cfg, err := Load(path, "v1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected Model=gpt-4o-mini (from env), got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Endpoint != "https://yaml.example.com" {
		t.Errorf("expected Endpoint from yaml, got %s", cfg.LLM.Endpoint)
	}
	if cfg.LogStore.Driver != "mssql" {
		t.Errorf("expected Driver=mssql (from env), got %s", cfg.LogStore.Driver)
	}
}

func TestLoad_SecretsComeFromEnvOnly(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("KB_DATABASE_URL", "postgres://localhost/kb")
	path := writeConfig(t, `
llm:
  endpoint: "https://example.openai.azure.com"
`)

	cfg, err := Load(path, "v1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("expected APIKey from env, got %q", cfg.LLM.APIKey)
	}
	if !cfg.Knowledge.Enabled() {
		t.Error("expected knowledge base enabled with KB_DATABASE_URL set")
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLM: LLMConfig{
				Provider: "azure-openai",
				Endpoint: "https://example.openai.azure.com",
				Model:    "gpt-4o",
				Timeout:  time.Minute,
			},
			LogStore: LogStoreConfig{Driver: "postgres", DSN: "postgres://localhost/logs"},
			Chat:     ChatConfig{MaxToolRounds: 5, MaxTurns: 30},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bedrock" }},
		{"missing endpoint", func(c *Config) { c.LLM.Endpoint = "" }},
		{"missing model", func(c *Config) { c.LLM.Model = "" }},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }},
		{"unknown driver", func(c *Config) { c.LogStore.Driver = "sqlite" }},
		{"missing dsn", func(c *Config) { c.LogStore.DSN = "" }},
		{"zero tool rounds", func(c *Config) { c.Chat.MaxToolRounds = 0 }},
		{"zero max turns", func(c *Config) { c.Chat.MaxTurns = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_AnthropicWithoutEndpoint(t *testing.T) {
	cfg := &Config{
		LLM:      LLMConfig{Provider: "anthropic", Model: "claude-sonnet-4-20250514", Timeout: time.Minute},
		LogStore: LogStoreConfig{Driver: "postgres", DSN: "postgres://localhost/logs"},
		Chat:     ChatConfig{MaxToolRounds: 5, MaxTurns: 30},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected anthropic without endpoint to validate, got %v", err)
	}
}
