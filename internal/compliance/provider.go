package compliance

import (
	"taxdesk/pkg/config"
)

// NewReporter returns the reporter selected by cfg.Provider, or nil when
// report generation is disabled.
func NewReporter(cfg config.AIConfig) Reporter {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiReporter(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout)
	case "anthropic":
		return NewAnthropicReporter(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.Timeout)
	}
	return nil
}
