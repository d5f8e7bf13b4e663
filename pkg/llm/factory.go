package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// ClientFactory creates provider clients from config. Exists as an
// interface so tests can inject mock clients.
type ClientFactory interface {
	NewClient(cfg *Config, logger *zap.Logger) (Client, error)
}

// Factory is the production ClientFactory.
type Factory struct{}

// NewClient dispatches on the configured provider.
func (Factory) NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "azure-openai", "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

var _ ClientFactory = Factory{}
