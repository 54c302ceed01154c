package provider

import (
	"context"

	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/secrets"
)

// OptionsFromConfig resolves the provider section of cfg. API keys are
// looked up through sec first and fall back to the configured values.
func OptionsFromConfig(ctx context.Context, cfg *config.Config, sec secrets.Manager, log *logger.Logger) Options {
	kind, ok := ParseKind(cfg.Provider.Kind)
	if !ok {
		logger.OrNop(log).Warn("Unknown API provider, falling back to Gemini", "provider", cfg.Provider.Kind)
	}

	opts := Options{
		Kind:          kind,
		GeminiAPIKey:  cfg.Provider.GeminiAPIKey,
		GeminiModel:   cfg.Provider.GeminiModel,
		OpenAIAPIKey:  cfg.Provider.OpenAIAPIKey,
		OpenAIModel:   cfg.Provider.OpenAIModel,
		OpenAIBaseURL: cfg.Provider.OpenAIBaseURL,
		LocalModelURL: cfg.Provider.LocalModelURL,
	}
	if sec != nil {
		opts.GeminiAPIKey = sec.GetSecretWithDefault(ctx, secrets.KeyGeminiAPIKey, opts.GeminiAPIKey)
		opts.OpenAIAPIKey = sec.GetSecretWithDefault(ctx, secrets.KeyOpenAIAPIKey, opts.OpenAIAPIKey)
	}
	return opts
}

// WithKind returns a copy of o targeting kind
func (o Options) WithKind(kind Kind) Options {
	o.Kind = kind
	return o
}
