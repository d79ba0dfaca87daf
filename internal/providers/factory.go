package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tofan79/autoclipper-backend/internal/apperr"
	"github.com/tofan79/autoclipper-backend/internal/config"
	"github.com/tofan79/autoclipper-backend/internal/logger"
)

// Build resolves the configured LLM provider and runs its health
// check once. A missing, broken, or unreachable provider is a
// provider_unavailable error; callers treat it as an optional
// capability, never a job failure.
func Build(ctx context.Context, cfg *config.Manager, baseLog *logger.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.GetString("LLM_PROVIDER", NameOllama)))

	var provider Provider
	switch name {
	case "", NameOllama:
		model := cfg.GetString("OLLAMA_MODEL", "llama3.1:8b")
		provider = NewOllamaProvider(model, os.Getenv("OLLAMA_BASE_URL"), baseLog)

	case NameOpenRouter:
		key, err := cfg.ResolveAPIKey(NameOpenRouter)
		if err != nil || key == "" {
			key = os.Getenv("OPENROUTER_API_KEY")
		}
		if key == "" {
			return nil, apperr.Stage(apperr.CodeProviderUnavailable,
				fmt.Errorf("openrouter provider selected but no API key is stored"))
		}
		model := cfg.GetString("OPENROUTER_MODEL", "openrouter/auto")
		provider = NewOpenRouterProvider(model, key, os.Getenv("OPENROUTER_BASE_URL"), baseLog)

	default:
		return nil, apperr.Stage(apperr.CodeProviderUnavailable,
			fmt.Errorf("unsupported LLM provider: %s", name))
	}

	if !provider.HealthCheck(ctx) {
		return nil, apperr.Stage(apperr.CodeProviderUnavailable,
			fmt.Errorf("%s provider failed its health check", provider.Name()))
	}
	return provider, nil
}
