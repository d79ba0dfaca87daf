package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/hooks"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type stubProvider struct {
	metadata map[string]any
	err      error
}

func (s *stubProvider) Name() string                          { return "stub" }
func (s *stubProvider) HealthCheck(ctx context.Context) bool  { return s.err == nil }
func (s *stubProvider) GenerateHooks(ctx context.Context, transcript string, max int) ([]hooks.LLMHook, error) {
	return nil, s.err
}
func (s *stubProvider) GenerateMetadata(ctx context.Context, transcript, platform string) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.metadata, nil
}

func TestGenerateCoversAllPlatforms(t *testing.T) {
	g := NewGenerator(80, mustTestLogger(t))
	out := g.GenerateForPlatforms(context.Background(), "some transcript", "My Talk", nil, 1)

	if len(out) != len(Platforms) {
		t.Fatalf("expected %d platforms, got %d", len(Platforms), len(out))
	}
	for _, platform := range Platforms {
		meta, ok := out[platform]
		if !ok {
			t.Fatalf("missing platform %s", platform)
		}
		if meta.Title == "" || meta.Caption == "" || len(meta.Hashtags) == 0 || meta.Filename == "" {
			t.Fatalf("incomplete metadata for %s: %+v", platform, meta)
		}
	}
}

func TestFallbacksWhenProviderFails(t *testing.T) {
	g := NewGenerator(80, mustTestLogger(t))
	p := &stubProvider{err: errors.New("provider down")}

	out := g.GenerateForPlatforms(context.Background(), "the transcript text", "Base Title", p, 3)
	meta := out["tiktok"]
	if !strings.Contains(meta.Title, "TIKTOK") {
		t.Fatalf("fallback title should carry platform suffix: %q", meta.Title)
	}
	if !strings.Contains(meta.Caption, "#tiktok") {
		t.Fatalf("fallback caption should tag the platform: %q", meta.Caption)
	}
	if meta.Hashtags[0] != "#tiktok" {
		t.Fatalf("fallback hashtags wrong: %v", meta.Hashtags)
	}
	if !strings.HasPrefix(meta.Filename, "03_tiktok_") {
		t.Fatalf("filename should encode clip index and platform: %q", meta.Filename)
	}
}

func TestProviderPayloadIsNormalized(t *testing.T) {
	g := NewGenerator(80, mustTestLogger(t))
	p := &stubProvider{metadata: map[string]any{
		"title":    "  A Big Reveal  ",
		"caption":  "watch this",
		"hashtags": []any{"Viral Clip", "#Already", "", 42},
	}}

	out := g.GenerateForPlatforms(context.Background(), "t", "base", p, 1)
	meta := out["youtube"]
	if meta.Title != "A Big Reveal" {
		t.Fatalf("title not trimmed: %q", meta.Title)
	}
	want := []string{"#viralclip", "#already", "#42"}
	if len(meta.Hashtags) != len(want) {
		t.Fatalf("hashtags = %v, want %v", meta.Hashtags, want)
	}
	for i := range want {
		if meta.Hashtags[i] != want[i] {
			t.Fatalf("hashtags = %v, want %v", meta.Hashtags, want)
		}
	}
}

func TestTruncationKeepsRuneBoundaries(t *testing.T) {
	g := NewGenerator(20, mustTestLogger(t))
	p := &stubProvider{metadata: map[string]any{
		"title": strings.Repeat("é", 60),
	}}

	longTranscript := strings.TrimSpace(strings.Repeat("übermäßig ", 40))
	out := g.GenerateForPlatforms(context.Background(), longTranscript, "base", p, 1)
	meta := out["youtube"]

	if !utf8.ValidString(meta.Title) {
		t.Fatalf("title split a multi-byte rune: %q", meta.Title)
	}
	if got := utf8.RuneCountInString(meta.Title); got > 20 {
		t.Fatalf("title rune count = %d, want <= 20", got)
	}

	caption := out["tiktok"].Caption
	if !utf8.ValidString(caption) {
		t.Fatalf("caption split a multi-byte rune: %q", caption)
	}
	preview := strings.SplitN(caption, "\n", 2)[0]
	if got := utf8.RuneCountInString(preview); got > 180 {
		t.Fatalf("caption preview rune count = %d, want <= 180", got)
	}
}

func TestHashtagLimit(t *testing.T) {
	var raw []any
	for i := 0; i < 20; i++ {
		raw = append(raw, "tag")
	}
	got := normalizeHashtags(raw)
	if len(got) != maxHashtags {
		t.Fatalf("expected cap at %d hashtags, got %d", maxHashtags, len(got))
	}
}

func TestDistributeOutputModes(t *testing.T) {
	if got := DistributeOutputModes(0); got != nil {
		t.Fatalf("expected nil for zero clips, got %v", got)
	}
	got := DistributeOutputModes(5)
	want := []string{
		types.ClipModePortrait, types.ClipModePortrait, types.ClipModeLandscape,
		types.ClipModePortrait, types.ClipModePortrait,
	}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("modes = %v, want %v", got, want)
		}
	}
}
