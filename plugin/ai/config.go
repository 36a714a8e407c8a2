package ai

import (
	"github.com/pkg/errors"

	"github.com/yhzhou/smartcal/internal/profile"
)

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string  // dashscope, deepseek, openai
	Model       string  // qwen-plus
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
}

// NewLLMConfigFromProfile creates LLM config from profile.
func NewLLMConfigFromProfile(p *profile.Profile) *LLMConfig {
	cfg := &LLMConfig{
		Provider:    p.AILLMProvider,
		Model:       p.AILLMModel,
		MaxTokens:   2048,
		Temperature: 0.7,
	}

	switch p.AILLMProvider {
	case "dashscope":
		cfg.APIKey = p.AIDashScopeAPIKey
		cfg.BaseURL = p.AIDashScopeURL
	case "deepseek":
		cfg.APIKey = p.AIDeepSeekAPIKey
		cfg.BaseURL = p.AIDeepSeekURL
	case "openai":
		cfg.APIKey = p.AIOpenAIAPIKey
		cfg.BaseURL = p.AIOpenAIURL
	}

	return cfg
}

// Validate validates the configuration.
func (c *LLMConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.Model == "" {
		return errors.New("LLM model is required")
	}
	return nil
}
