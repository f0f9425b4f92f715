package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewClient creates the model client selected by cfg.Provider.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
