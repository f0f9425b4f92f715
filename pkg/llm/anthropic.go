package llm

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient provides access to the Anthropic Messages API.
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(cfg.APIKey, opts...),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   maxTokens,
		logger:      logger.Named("llm"),
	}, nil
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error) {
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()
	temperature := c.temperature

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			content = *block.Text
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &CompletionResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// GetModel implements Client.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

var _ Client = (*AnthropicClient)(nil)
