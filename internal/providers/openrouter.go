package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterReferer        = "https://github.com/tofan79/apps-auto-clipper"
)

// OpenRouterProvider is the remote-HTTP provider variant; requires an
// API key from the encrypted secret store.
type OpenRouterProvider struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewOpenRouterProvider(model, apiKey, baseURL string, baseLog *logger.Logger) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &OpenRouterProvider{
		model:   model,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     baseLog.With("provider", NameOpenRouter),
	}
}

func (p *OpenRouterProvider) Name() string { return NameOpenRouter }

func (p *OpenRouterProvider) HealthCheck(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *OpenRouterProvider) GenerateHooks(ctx context.Context, transcript string, maxCandidates int) ([]hooks.LLMHook, error) {
	prompt := fmt.Sprintf(
		"Analyze transcript and return ONLY JSON array of hook candidates with keys: "+
			"start,end,semantic_score,emotion_score,reason,confidence.\n\nLimit: %d items.\n\nTranscript:\n%s",
		maxCandidates, transcript,
	)
	text, err := p.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeHooks(text, maxCandidates)
}

func (p *OpenRouterProvider) GenerateMetadata(ctx context.Context, transcript, platform string) (map[string]any, error) {
	prompt := fmt.Sprintf(
		"Create JSON object metadata for %s with keys title, caption, hashtags.\n\nTranscript:\n%s",
		platform, transcript,
	)
	text, err := p.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(text)
}

func (p *OpenRouterProvider) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", openRouterReferer)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openrouter returned %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("openrouter response decode: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}
