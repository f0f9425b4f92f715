// Package config loads server configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for querylens-engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	Name      string `yaml:"name" env:"SERVER_NAME" env-default:"querylens-engine"`
	Transport string `yaml:"transport" env:"TRANSPORT" env-default:"stdio"` // "stdio" or "http"
	BindAddr  string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port      string `yaml:"port" env:"PORT" env-default:"3443"`
	Env       string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Version   string `yaml:"-"` // Set at load time, not from config

	// AI model configuration
	AI AIConfig `yaml:"ai"`

	// Query pipeline configuration
	Query QueryConfig `yaml:"query"`
}

// AIConfig holds the model endpoint used for SQL generation.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	BaseURL  string `yaml:"base_url" env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML

	CompileTimeoutSeconds int     `yaml:"compile_timeout_seconds" env:"AI_COMPILE_TIMEOUT_SECONDS" env-default:"30"`
	Temperature           float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0"`
	MaxTokens             int     `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"2048"`
}

// QueryConfig holds execution and caching settings for the query pipeline.
type QueryConfig struct {
	// RowLimit caps the number of rows returned by a single query.
	RowLimit int `yaml:"row_limit" env:"QUERY_ROW_LIMIT" env-default:"1000"`
	// ExecTimeoutSeconds bounds statement execution against the datasource.
	ExecTimeoutSeconds int `yaml:"exec_timeout_seconds" env:"QUERY_EXEC_TIMEOUT_SECONDS" env-default:"30"`
	// CacheTTLSeconds is how long cached query results stay fresh.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" env:"QUERY_CACHE_TTL_SECONDS" env-default:"300"`
	// EnableCache turns result caching on or off.
	EnableCache bool `yaml:"enable_cache" env:"QUERY_ENABLE_CACHE" env-default:"true"`
	// EnableHistory turns per-session query history on or off.
	EnableHistory bool `yaml:"enable_history" env:"QUERY_ENABLE_HISTORY" env-default:"true"`
	// HistoryTail is how many recent history entries feed the prompt.
	HistoryTail int `yaml:"history_tail" env:"QUERY_HISTORY_TAIL" env-default:"5"`
	// PromptTableBudget caps how many tables are described in the prompt.
	PromptTableBudget int `yaml:"prompt_table_budget" env:"QUERY_PROMPT_TABLE_BUDGET" env-default:"20"`
}

// ExecTimeout returns the execution timeout as a duration.
func (c *QueryConfig) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache TTL as a duration.
func (c *QueryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// CompileTimeout returns the SQL generation timeout as a duration.
func (c *AIConfig) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. If config.yaml does not exist, configuration comes from
// environment variables and defaults alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("transport must be stdio or http, got %q", c.Transport)
	}

	if c.Query.RowLimit <= 0 {
		return fmt.Errorf("query row_limit must be positive, got %d", c.Query.RowLimit)
	}
	if c.Query.ExecTimeoutSeconds <= 0 {
		return fmt.Errorf("query exec_timeout_seconds must be positive, got %d", c.Query.ExecTimeoutSeconds)
	}
	if c.AI.CompileTimeoutSeconds <= 0 {
		return fmt.Errorf("ai compile_timeout_seconds must be positive, got %d", c.AI.CompileTimeoutSeconds)
	}

	return nil
}
