// Package llm provides centralized LLM configuration and client abstractions.
// This package enables switching between model tiers and providers without
// touching caller code.
package llm

import "os"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: summarization, keyword extraction
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: section drafting, scoring
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: planning, revision, analysis
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI chat-completions provider
	ProviderOpenAI Provider = "openai"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL string
}

// DefaultConfig returns the configuration selected by the LLM_PROVIDER
// environment variable, defaulting to Gemini.
func DefaultConfig() *Config {
	switch Provider(os.Getenv("LLM_PROVIDER")) {
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	default:
		return DefaultGeminiConfig()
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		BaseURL:  os.Getenv("OPENAI_BASE_URL"),
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
	}
}

// GetModel returns the model name configured for a tier, or empty string.
func (c *Config) GetModel(tier ModelTier) string {
	if c == nil || c.Models == nil {
		return ""
	}
	return c.Models[tier]
}
