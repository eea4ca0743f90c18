package llm

import (
	"testing"
)

func TestDefaultConfig_ProviderSelection(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	cfg := DefaultConfig()
	if cfg.Provider != ProviderGemini {
		t.Errorf("expected default provider gemini, got %s", cfg.Provider)
	}

	t.Setenv("LLM_PROVIDER", "openai")
	cfg = DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected provider openai, got %s", cfg.Provider)
	}
}

func TestConfig_GetModel(t *testing.T) {
	cfg := DefaultGeminiConfig()

	for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
		if cfg.GetModel(tier) == "" {
			t.Errorf("no model configured for tier %s", tier)
		}
	}

	if got := cfg.GetModel(ModelTier("bogus")); got != "" {
		t.Errorf("expected empty model for unknown tier, got %q", got)
	}

	var nilCfg *Config
	if got := nilCfg.GetModel(TierLite); got != "" {
		t.Errorf("expected empty model for nil config, got %q", got)
	}
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), DefaultGeminiConfig(), "")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(DefaultOpenAIConfig(), "")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}
