package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the assistant.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, connection strings) must only come from environment variables.
type Config struct {
	// Env selects logger behavior: "local" uses the development logger,
	// anything else uses the production logger.
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Model provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Security log store configuration
	LogStore LogStoreConfig `yaml:"logstore"`

	// Knowledge base configuration (optional feature)
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Conversation limits
	Chat ChatConfig `yaml:"chat"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	// Provider is "azure-openai", "openai" or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"azure-openai"`
	// Endpoint is the base URL, or the Azure resource endpoint.
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	// Model is the model name, or the deployment name on Azure.
	Model      string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIVersion string `yaml:"api_version" env:"LLM_API_VERSION" env-default:"2024-10-21"`
	// APIKey must come from the environment.
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.2"`
	// Timeout bounds each model call; expiry surfaces as a transport
	// failure.
	Timeout time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
}

// LogStoreConfig holds security log store connection settings.
type LogStoreConfig struct {
	// Driver is a registered adapter name: "postgres" or "mssql".
	Driver string `yaml:"driver" env:"LOGSTORE_DRIVER" env-default:"postgres"`
	// DSN carries credentials and must come from the environment.
	DSN      string `yaml:"-" env:"LOGSTORE_DSN"` // Secret - not in YAML
	MaxConns int32  `yaml:"max_conns" env:"LOGSTORE_MAX_CONNS" env-default:"10"`
	// MigrationsPath is the directory holding schema migrations,
	// applied by the migrate subcommand.
	MigrationsPath string `yaml:"migrations_path" env:"LOGSTORE_MIGRATIONS_PATH" env-default:"migrations"`
}

// KnowledgeConfig holds knowledge base settings. The knowledge base is
// optional: when DatabaseURL is empty the assistant runs without the
// historical-incident and playbook search tools.
type KnowledgeConfig struct {
	// DatabaseURL is the pgvector-enabled PostgreSQL connection string.
	// Carries credentials and must come from the environment.
	DatabaseURL string `yaml:"-" env:"KB_DATABASE_URL"` // Secret - not in YAML
	// EmbeddingModel is the embedding model name, or deployment name on Azure.
	EmbeddingModel string `yaml:"embedding_model" env:"KB_EMBEDDING_MODEL" env-default:"text-embedding-3-large"`
	// SeedPath is the YAML file read by the seed-kb subcommand.
	SeedPath string `yaml:"seed_path" env:"KB_SEED_PATH" env-default:"seeds/knowledge.yaml"`
	// MitreCacheDir is where the ATT&CK technique bundle is cached.
	MitreCacheDir string `yaml:"mitre_cache_dir" env:"KB_MITRE_CACHE_DIR" env-default:".cache"`
	MaxConns      int32  `yaml:"max_conns" env:"KB_MAX_CONNS" env-default:"5"`
}

// Enabled reports whether the knowledge base is configured.
func (c *KnowledgeConfig) Enabled() bool {
	return c.DatabaseURL != ""
}

// ChatConfig holds conversation loop limits.
type ChatConfig struct {
	// MaxToolRounds caps tool-call rounds within a single user turn.
	MaxToolRounds int `yaml:"max_tool_rounds" env:"CHAT_MAX_TOOL_ROUNDS" env-default:"5"`
	// MaxTurns is the user-turn count beyond which old history is trimmed.
	MaxTurns int `yaml:"max_turns" env:"CHAT_MAX_TURNS" env-default:"30"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides. The version parameter is injected at build time and
// set on the returned Config. Secrets (LLM_API_KEY, LOGSTORE_DSN,
// KB_DATABASE_URL) must come from environment variables (yaml:"-" fields).
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "azure-openai", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Endpoint == "" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("llm endpoint is required for provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	switch c.LogStore.Driver {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unknown logstore driver %q", c.LogStore.Driver)
	}
	if c.LogStore.DSN == "" {
		return fmt.Errorf("LOGSTORE_DSN is required")
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}

	if c.Chat.MaxToolRounds < 1 {
		return fmt.Errorf("chat max_tool_rounds must be at least 1")
	}
	if c.Chat.MaxTurns < 1 {
		return fmt.Errorf("chat max_turns must be at least 1")
	}

	return nil
}
