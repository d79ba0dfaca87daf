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

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaProvider talks to a local Ollama daemon. No API key; health
// is just endpoint reachability.
type OllamaProvider struct {
	model   string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewOllamaProvider(model, baseURL string, baseLog *logger.Logger) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaProvider{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     baseLog.With("provider", NameOllama),
	}
}

func (p *OllamaProvider) Name() string { return NameOllama }

func (p *OllamaProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *OllamaProvider) GenerateHooks(ctx context.Context, transcript string, maxCandidates int) ([]hooks.LLMHook, error) {
	prompt := fmt.Sprintf(
		"Analyze transcript and return ONLY JSON array of hook candidates. "+
			"Need up to %d items with keys: start,end,semantic_score,emotion_score,reason,confidence.\n\nTranscript:\n%s",
		maxCandidates, transcript,
	)
	text, err := p.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeHooks(text, maxCandidates)
}

func (p *OllamaProvider) GenerateMetadata(ctx context.Context, transcript, platform string) (map[string]any, error) {
	prompt := fmt.Sprintf(
		"Create short-form %s metadata. Return JSON object with keys: title,caption,hashtags.\n\nTranscript:\n%s",
		platform, transcript,
	)
	text, err := p.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(text)
}

func (p *OllamaProvider) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var payload struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("ollama response decode: %w", err)
	}
	return strings.TrimSpace(payload.Response), nil
}

func decodeHooks(text string, maxCandidates int) ([]hooks.LLMHook, error) {
	doc, err := ExtractJSONPayload(text)
	if err != nil {
		return nil, err
	}
	var out []hooks.LLMHook
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, fmt.Errorf("hook payload decode: %w", err)
	}
	if maxCandidates > 0 && len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out, nil
}

func decodeMetadata(text string) (map[string]any, error) {
	doc, err := ExtractJSONPayload(text)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, fmt.Errorf("metadata payload decode: %w", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
