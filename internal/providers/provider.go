package providers

import (
	"context"

	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

// Provider names accepted in configuration.
const (
	NameOllama     = "ollama"
	NameOpenRouter = "openrouter"
)

// Provider is the LLM capability the pipeline consumes. It is always
// optional: callers fall back to heuristics when a call fails.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) bool
	GenerateHooks(ctx context.Context, transcript string, maxCandidates int) ([]hooks.LLMHook, error)
	GenerateMetadata(ctx context.Context, transcript, platform string) (map[string]any, error)
}
