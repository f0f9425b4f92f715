package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient provides access to OpenAI-compatible completion endpoints,
// including local vLLM and Ollama deployments.
type OpenAIClient struct {
	client      *openai.Client
	endpoint    string
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.Named("llm"),
	}, nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", c.temperature))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(c.temperature),
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &CompletionResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// GetModel implements Client.
func (c *OpenAIClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *OpenAIClient) GetEndpoint() string {
	return c.endpoint
}

var _ Client = (*OpenAIClient)(nil)
